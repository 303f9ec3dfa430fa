package model

// User caches the resolved email address of a GitHub login. An empty Email
// is a cached negative lookup.
type User struct {
	Login string
	Email string
}
