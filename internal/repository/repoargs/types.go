package repoargs

type RepositoryName string

const (
	AccountRepoName     RepositoryName = "account"
	AssetTypeRepoName   RepositoryName = "asset_type"
	BalanceRepoName     RepositoryName = "account_balance"
	TransactionRepoName RepositoryName = "transaction"
	LedgerEntryRepoName RepositoryName = "ledger_entry"
)
