package wiki

// PageData is one page as returned by the content API: its title, an opaque
// version timestamp (comparable for equality only) and the raw body.
type PageData struct {
	Page      string `json:"page"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// PageList is the wiki's page index.
type PageList struct {
	Pages []PageSummary `json:"pages"`
}

type PageSummary struct {
	Page      string `json:"page"`
	Timestamp string `json:"timestamp"`
}

type authResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
}
