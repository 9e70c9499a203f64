package entity

// FetchLog is one line of the HTTP request log
type FetchLog struct {
	Request  *FetchRequest  `json:"request"`
	Response *FetchResponse `json:"response,omitempty"`
	Depth    int            `json:"depth"`
	Elapsed  int64          `json:"elapsed_ms"`
	Error    string         `json:"error,omitempty"`
}

// FetchRequest is the request half of a FetchLog
type FetchRequest struct {
	Method string            `json:"method"`
	URL    string            `json:"url"`
	Header map[string]string `json:"header"`
}

// FetchResponse is the response half of a FetchLog
type FetchResponse struct {
	URL           string            `json:"url"`
	Proto         string            `json:"proto"`
	StatusCode    int               `json:"status_code"`
	Header        map[string]string `json:"header"`
	ContentLength int               `json:"content_length"`
}
