package api

// Route constants for the API endpoints

const (
	// Health endpoint
	PingEndpoint = "/ping" // GET: Health check

	// Mixer endpoints
	DepositsEndpoint    = "/deposits"    // POST: Submit a deposit
	WithdrawalsEndpoint = "/withdrawals" // POST: Submit a withdrawal

	// Root endpoints
	RootURLParam       = "root"                          // URL parameter for a merkle root
	RootEndpoint       = "/root"                         // GET: Current root and leaf count
	RootStatusEndpoint = "/roots/{" + RootURLParam + "}" // GET: Whether a root is inside the trust window

	// Info endpoint
	InfoEndpoint = "/info" // GET: Pool shape and fill level

	// Facts endpoints
	FactIDURLParam   = "factId"                          // URL parameter for a fact ID
	FactsEndpoint    = "/facts"                          // GET: List recorded facts
	FactByIDEndpoint = "/facts/{" + FactIDURLParam + "}" // GET: Get a single fact
)
