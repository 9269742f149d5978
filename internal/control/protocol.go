package control

// Control messages are tagged JSON envelopes exchanged over a single
// websocket to the tool's well-known control endpoint. Requests carry an Op
// and a caller-assigned ID; replies echo the ID with Ack set to the request
// Op. Unsolicited notifications carry Event instead and no ID.

// Operation kinds sent by the manager.
const (
	opEnable          = "enable"
	opDisable         = "disable"
	opAllowTransition = "allow-transition"
	opGetResults      = "get-results"
	opRedirect        = "redirect"
	opStop            = "stop"
)

// Notification events pushed by the tool. A registered recipient must
// handle all three.
const (
	// evResults delivers the result set inline.
	evResults = "results"
	// evResultsAvailable announces results that require an explicit fetch.
	evResultsAvailable = "results-available"
	// evTimeout reports that the remote side gave up waiting for a match.
	evTimeout = "timeout"
)

// envelope is the single wire shape for requests, replies and notifications.
// Unused fields are omitted on the wire.
type envelope struct {
	ID    uint64 `json:"id,omitempty"`
	Op    string `json:"op,omitempty"`
	Ack   string `json:"ack,omitempty"`
	Event string `json:"event,omitempty"`

	// Enable arguments.
	Labels []string `json:"labels,omitempty"`
	Any    bool     `json:"any,omitempty"`
	Mode   string   `json:"mode,omitempty"`

	// AllowTransition argument. Pointer so that an explicit false is
	// still serialized.
	Allow *bool `json:"allow,omitempty"`

	// Result payload for get-results replies and results events.
	Entries []ResultEntry `json:"entries,omitempty"`

	// Error carries the remote diagnostic on failed replies.
	Error string `json:"error,omitempty"`
}

func enableEnvelope(spec LabelSpec) envelope {
	return envelope{
		Op:     opEnable,
		Labels: spec.Labels,
		Any:    spec.Any,
		Mode:   string(spec.Mode),
	}
}
