package dashboard

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/veloxcase/veloxcase-tui/internal/api"
)

// SortFolders orders folders by name with Turkish collation, ignoring case
// and accents. The sort is stable so equal names keep server order.
func SortFolders(folders []api.Folder) {
	// A Collator keeps internal buffers and must not be shared.
	col := collate.New(language.Turkish, collate.Loose)
	sort.SliceStable(folders, func(i, j int) bool {
		return col.CompareString(folders[i].Name, folders[j].Name) < 0
	})
}

// pinFirst returns folders with the folder id moved to the front and the
// rest sorted. A folder missing from the list is synthesized from name.
func pinFirst(folders []api.Folder, id int64, name string) []api.Folder {
	pinned := api.Folder{ID: id, Name: name}
	rest := make([]api.Folder, 0, len(folders))
	for _, f := range folders {
		if f.ID == id {
			pinned = f
			continue
		}
		rest = append(rest, f)
	}
	SortFolders(rest)
	return append([]api.Folder{pinned}, rest...)
}

// hasFolderNamed reports a case-insensitive name match.
func hasFolderNamed(folders []api.Folder, name string) bool {
	for _, f := range folders {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}
