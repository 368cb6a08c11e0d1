package filebrowser

// Selection is the outcome of resolving a listing number.
type Selection struct {
	// Found is false when the number did not map to any row.
	Found bool
	Entry Entry
}

// IsParent reports whether the selection is the "go up" row.
func (s Selection) IsParent() bool { return s.Found && s.Entry.Type == TypeParent }

// ResolveSelection maps a listing number onto the cached rows. 0 is the
// parent row, 1..len(folders) are folders and the following numbers are
// files. Anything else is not found.
func ResolveSelection(n int, folders, files []Entry) Selection {
	switch {
	case n == 0:
		return Selection{Found: true, Entry: Entry{Type: TypeParent, Name: "../"}}
	case n < 0:
		return Selection{}
	case n <= len(folders):
		return Selection{Found: true, Entry: folders[n-1]}
	}
	if i := n - len(folders) - 1; i < len(files) {
		return Selection{Found: true, Entry: files[i]}
	}
	return Selection{}
}
