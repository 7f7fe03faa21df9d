package gateway

// State is the resolved control endpoint state. Exactly one instance
// is current per process, owned by the Resolver.
//
// Ready==true carries URL plus optional Token and Password; Ready==false
// carries Reason. The struct is comparable so no-op transitions can be
// detected by value equality across all fields.
type State struct {
	Ready    bool
	Mode     Mode
	URL      string
	Token    string
	Password string
	Reason   string
}

// Equal reports value equality across the whole state.
func (s State) Equal(o State) bool {
	return s == o
}
