package model

// FetchResult is the outcome of reading a sheet range. When Success is
// false only ErrorKind and Detail are meaningful.
type FetchResult struct {
	Success     bool          `json:"success"`
	Rows        []Row         `json:"rows"`
	Headers     []string      `json:"headers"`
	Annotations AnnotationMap `json:"annotations"`
	ErrorKind   ErrorKind     `json:"errorKind,omitempty"`
	Detail      string        `json:"detail,omitempty"`
}

// FetchFailed builds an unsuccessful FetchResult.
func FetchFailed(kind ErrorKind, detail string) FetchResult {
	return FetchResult{Success: false, ErrorKind: kind, Detail: detail}
}

// Channel names where a write ended up.
type Channel string

const (
	ChannelRemote        Channel = "remote"
	ChannelCacheFallback Channel = "cacheFallback"
)

// DeliveryResult reports a write. Verified is true only when the remote
// acknowledgement was actually observed.
type DeliveryResult struct {
	Success  bool    `json:"success"`
	Channel  Channel `json:"channel"`
	Verified bool    `json:"verified"`
	Strategy string  `json:"strategy,omitempty"`
}
