package config

// APIConfig sets the HTTP server of the serve command.
type APIConfig struct {
	Listen string `json:"listen"`
	// Token, when set, is required as a bearer token on /api routes.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}
