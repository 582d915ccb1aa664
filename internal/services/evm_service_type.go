package services

// DeployPlaylistCallArgs are the inputs of a deployPlaylist call
type DeployPlaylistCallArgs struct {
	Factory       string   `validate:"required,eth_addr"`
	PriceFeed     string   `validate:"required,eth_addr"`
	Owner         string   `validate:"required,eth_addr"`
	Name          string   `validate:"required"`
	CoverImageURL string   `validate:"omitempty,url"`
	Description   string   // Description can be empty
	Tags          []string `validate:"dive,required"`
	Salt          string   `validate:"required,hexadecimal"`
	Value         string   `validate:"omitempty,number"` // Optional value in wei, defaults to "0"
}
