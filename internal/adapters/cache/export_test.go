package cache

// EntryName exposes the on-disk file name of a key.
func EntryName(key string) string {
	return entryName(key)
}

// Pin marks key as in use by a reader and returns the release function.
func (s *Store) Pin(key string) func() {
	name := entryName(key)
	s.pin(name)
	return func() { s.unpin(name) }
}
