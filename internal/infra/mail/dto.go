package mail

// RelinkEmailData fills the re-link alert template.
type RelinkEmailData struct {
	LocationID string
	Detail     string
	ConnectURL string
}

type EmailSender struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	To         string
	ConnectURL string
	dialer     Dialer
}
