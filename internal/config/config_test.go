package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestDefaults() {
	conf, err := LoadConfig([]string{"-d", "postgres://localhost/wallet"})
	s.Require().NoError(err)

	s.Equal("localhost:8080", conf.RunAddress)
	s.Equal("postgres://localhost/wallet", conf.DatabaseDSN)
	s.Equal("internal/db/migrations", conf.MigrationsDir)
	s.Empty(conf.JWTSecret)
	s.Equal(5*time.Second, conf.TransferTimeout)
	s.Equal(3*time.Second, conf.LockTimeout)
	s.Equal(3, conf.TransferRetries)
	s.Equal("SYS-TREASURY-001", conf.TreasuryAccount)
	s.Equal("SYS-BONUS-001", conf.BonusAccount)
	s.Equal("SYS-REVENUE-001", conf.RevenueAccount)
	s.Equal(time.Minute, conf.AuditInterval)
	s.Equal(uint(4), conf.AuditWorkers)
	s.Equal(uint(100), conf.AuditBatch)
}

func (s *ConfigTestSuite) TestEnvOverridesFlags() {
	s.T().Setenv("RUN_ADDRESS", "0.0.0.0:9000")
	s.T().Setenv("DATABASE_URI", "postgres://env/wallet")
	s.T().Setenv("LOCK_TIMEOUT", "750ms")
	s.T().Setenv("AUDIT_INTERVAL", "0s")

	conf, err := LoadConfig([]string{"-a", "localhost:1", "-d", "postgres://flag/wallet", "-j", "secret"})
	s.Require().NoError(err)

	s.Equal("0.0.0.0:9000", conf.RunAddress)
	s.Equal("postgres://env/wallet", conf.DatabaseDSN)
	s.Equal("secret", conf.JWTSecret)
	s.Equal(750*time.Millisecond, conf.LockTimeout)
	s.Zero(conf.AuditInterval)
}

func (s *ConfigTestSuite) TestErrors() {
	_, err := LoadConfig(nil)
	s.Require().Error(err, "dsn is required")

	s.T().Setenv("TRANSFER_TIMEOUT", "soon")
	_, err = LoadConfig([]string{"-d", "postgres://localhost/wallet"})
	s.Require().Error(err)
}

func (s *ConfigTestSuite) TestNegativeTimeout() {
	s.T().Setenv("LOCK_TIMEOUT", "-1s")
	_, err := LoadConfig([]string{"-d", "postgres://localhost/wallet"})
	s.Require().Error(err)
}

func (s *ConfigTestSuite) TestZeroAuditBatch() {
	s.T().Setenv("AUDIT_BATCH", "0")
	_, err := LoadConfig([]string{"-d", "postgres://localhost/wallet"})
	s.Require().Error(err)

	// выключенный аудит размер страницы не проверяет.
	s.T().Setenv("AUDIT_INTERVAL", "0s")
	conf, err := LoadConfig([]string{"-d", "postgres://localhost/wallet"})
	s.Require().NoError(err)
	s.Zero(conf.AuditBatch)
}

func (s *ConfigTestSuite) TestZeroAuditWorkers() {
	s.T().Setenv("AUDIT_WORKERS", "0")
	_, err := LoadConfig([]string{"-d", "postgres://localhost/wallet"})
	s.Require().Error(err)
}
