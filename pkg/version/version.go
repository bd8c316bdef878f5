package version

// Version is the current version of the demovoice server
const Version = "0.2.1"

// UserAgent returns the User-Agent string for HTTP requests
func UserAgent() string {
	return "demovoice/" + Version
}

// ServerHeader returns the Server header value for HTTP responses
func ServerHeader() string {
	return "demovoice/" + Version
}
