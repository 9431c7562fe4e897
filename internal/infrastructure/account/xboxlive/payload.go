package xboxlive

type userTokenRequest struct {
	Properties   userTokenProperties `json:"Properties"`
	RelyingParty string              `json:"RelyingParty"`
	TokenType    string              `json:"TokenType"`
}

type userTokenProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

type userTokenResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		Xui []struct {
			Uhs string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

type xstsRequest struct {
	Properties   xstsProperties `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

type xstsProperties struct {
	SandboxID  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

type xstsResponse struct {
	Token string `json:"Token"`
}

type spartanRequest struct {
	Audience   string         `json:"Audience"`
	MinVersion string         `json:"MinVersion"`
	Proof      []spartanProof `json:"Proof"`
}

type spartanProof struct {
	Token     string `json:"Token"`
	TokenType string `json:"TokenType"`
}

type spartanResponse struct {
	SpartanToken string `json:"SpartanToken"`
	ExpiresUtc   struct {
		ISO8601Date string `json:"ISO8601Date"`
	} `json:"ExpiresUtc"`
}
