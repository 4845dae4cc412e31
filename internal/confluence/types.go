package confluence

// Page is one content item as returned by the content API.
type Page struct {
	ID    string
	Title string
	Body  string // storage-format markup, empty for pages fetched without expansion
}

type contentResult struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
	Body  struct {
		Storage *struct {
			Value *string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

type childrenResponse struct {
	Results []contentResult `json:"results"`
	Start   int             `json:"start"`
	Limit   int             `json:"limit"`
	Size    int             `json:"size"`
}

// bodyValue returns the storage markup and whether it was present at all.
func (r contentResult) bodyValue() (string, bool) {
	if r.Body.Storage == nil || r.Body.Storage.Value == nil {
		return "", false
	}
	return *r.Body.Storage.Value, true
}

// title returns the page title and whether the field was present. An empty
// title is valid and sanitizes to the placeholder name.
func (r contentResult) title() (string, bool) {
	if r.Title == nil {
		return "", false
	}
	return *r.Title, true
}
