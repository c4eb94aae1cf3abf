package testutils

import "strings"

// GenerateOverBytesUnderRunes строка из count многобайтовых рун: проходит проверку длины в рунах, но не в байтах.
// Нужна для проверки валидатора max_bytes у ключа идемпотентности.
func GenerateOverBytesUnderRunes(count int) string {
	return strings.Repeat("😁", count)
}

// GenerateIdempotencyKey ключ ровно из size байт ASCII.
func GenerateIdempotencyKey(size int) string {
	return strings.Repeat("k", size)
}
