package sharpsports

// RefreshOutcome é o resultado classificado de um refresh.
// Interface selada: só os tipos deste arquivo a implementam; o chamador faz type switch exaustivo.
type RefreshOutcome interface {
	// Status é a string devolvida ao cliente para o estado
	Status() string
	refreshOutcome()
}

// Accounts são as contas do bucket que definiu o estado
type Accounts []AccountRef

// First devolve o id da primeira conta ou ""
func (a Accounts) First() string {
	if len(a) == 0 {
		return ""
	}
	return a[0].ID
}

type (
	OTPRequired             struct{ Accounts }
	Unverified              struct{ Accounts }
	NoAccess                struct{ Accounts }
	RateLimited             struct{ Accounts }
	Unverifiable            struct{ Accounts }
	BookInactive            struct{ Accounts }
	BookRegionInactive      struct{ Accounts }
	AuthParameterRequired   struct{ Accounts }
	ExtensionUpdateRequired struct{ Accounts }
	// Refreshed cobre sucesso e resposta vazia
	Refreshed struct{ Accounts }
)

func (OTPRequired) Status() string             { return "otp_required" }
func (Unverified) Status() string              { return "unverified" }
func (NoAccess) Status() string                { return "no_access" }
func (RateLimited) Status() string             { return "rate_limited" }
func (Unverifiable) Status() string            { return "unverifiable" }
func (BookInactive) Status() string            { return "book_inactive" }
func (BookRegionInactive) Status() string      { return "book_region_inactive" }
func (AuthParameterRequired) Status() string   { return "auth_parameter_required" }
func (ExtensionUpdateRequired) Status() string { return "extension_update_required" }
func (Refreshed) Status() string               { return "refreshed" }

func (OTPRequired) refreshOutcome()             {}
func (Unverified) refreshOutcome()              {}
func (NoAccess) refreshOutcome()                {}
func (RateLimited) refreshOutcome()             {}
func (Unverifiable) refreshOutcome()            {}
func (BookInactive) refreshOutcome()            {}
func (BookRegionInactive) refreshOutcome()      {}
func (AuthParameterRequired) refreshOutcome()   {}
func (ExtensionUpdateRequired) refreshOutcome() {}
func (Refreshed) refreshOutcome()               {}

// Classify avalia os buckets na ordem fixa de prioridade;
// o primeiro bucket não vazio define o estado.
func Classify(r *RefreshResponse) RefreshOutcome {
	if r == nil {
		return Refreshed{}
	}
	switch {
	case len(r.OTPRequired) > 0:
		return OTPRequired{r.OTPRequired}
	case len(r.Unverified) > 0:
		return Unverified{r.Unverified}
	case len(r.NoAccess) > 0:
		return NoAccess{r.NoAccess}
	case len(r.RateLimited) > 0:
		return RateLimited{r.RateLimited}
	case len(r.IsUnverifiable) > 0:
		return Unverifiable{r.IsUnverifiable}
	case len(r.BookInactive) > 0:
		return BookInactive{r.BookInactive}
	case len(r.BookRegionInactive) > 0:
		return BookRegionInactive{r.BookRegionInactive}
	case len(r.AuthParameterRequired) > 0:
		return AuthParameterRequired{r.AuthParameterRequired}
	case len(r.ExtensionUpdateRequired) > 0:
		return ExtensionUpdateRequired{r.ExtensionUpdateRequired}
	default:
		return Refreshed{r.Success}
	}
}
