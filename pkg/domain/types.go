package domain

// User is the identity returned by the auth backend.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// Tag labels a report. Names are unique within one report.
type Tag struct {
	ID   *int   `json:"id,omitempty"`
	Name string `json:"name"`
}

// Report is one daily report. Content is editor HTML and must be sanitized before display.
type Report struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	Team      string `json:"team,omitempty"`
	Date      string `json:"date,omitempty"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Registration carries the sign-up form fields.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Team     string `json:"team"`
}

// UploadResult is returned by an image upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
