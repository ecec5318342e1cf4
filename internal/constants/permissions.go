package constants

const (
	CreateTransaction    = "create_transaction"
	ViewTransaction      = "view_transaction"
	UpdateTransaction    = "update_transaction"
	RateTransaction      = "rate_transaction"
	ViewAllTransactions  = "view_all_transactions"
	DeleteTransaction    = "delete_transaction"
	OverrideTransaction  = "override_transaction"
	ViewRankings         = "view_rankings"
	ViewCompletionWindow = "view_completion_window"
)
