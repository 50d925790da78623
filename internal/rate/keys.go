package rate

// Key joins a scope and an identifier into a counter key.
func Key(scope, id string) string {
	return scope + ":" + id
}
