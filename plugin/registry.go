package plugin

import "fmt"

// Journals is a global map of EventJournal plugins.
var Journals = map[string]func(path string, batchSize int) (EventJournal, error){
	"badger": func(path string, batchSize int) (EventJournal, error) {
		return NewBadgerJournal(path, batchSize)
	},
}

func JournalLookup(name, path string, batchSize int) (EventJournal, error) {
	factory, ok := Journals[name]
	if !ok {
		return nil, fmt.Errorf("unknown journal: %s", name)
	}
	return factory(path, batchSize)
}
