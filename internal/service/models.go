package service

type LookupResult struct {
	Exists                  bool
	HasAccount              bool
	EmployeeName            string
	MaskedSupervisorContact string
	RequiresPINChange       bool
}

type SessionResult struct {
	ExchangeToken     string
	IdentityID        string
	EmployeeName      string
	RequiresPINChange bool
}

type CodeRequestResult struct {
	MaskedSupervisorContact string
}
