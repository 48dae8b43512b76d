package entity

// UserAuth is the caller of the authoring API.
type UserAuth struct {
	Username string `json:"username" bson:"username"`
	Token    string `json:"token" bson:"token"`
}
