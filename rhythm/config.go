package ritornello

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ConfigFile is the on-disk service configuration.
// Thresholds override the shipped validity table per pattern name;
// anything absent keeps its default.
type ConfigFile struct {
	ID              string               `json:"id"`
	Listen          string               `json:"listen"`           // data server address, e.g. ":8090"
	Journal         string               `json:"journal"`          // badger journal path, empty disables
	VectorDimension int                  `json:"vector_dimension"` // 0 keeps the default
	Thresholds      map[string]Threshold `json:"thresholds"`
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) (*ConfigFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

func LoadConfig(file *os.File) (*ConfigFile, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return nil, err
	}
	defer cf.Close()

	// decode json
	var config ConfigFile
	decoder := json.NewDecoder(cf)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return nil, err
	}

	return &config, nil
}

// NewRhythmSetFromConfig builds a set with the config's overrides
// layered over the defaults. Unknown pattern names in the threshold
// map fail fast rather than silently configuring nothing.
func NewRhythmSetFromConfig(cf *ConfigFile) (*RhythmSet, error) {
	if cf == nil {
		return NewRhythmSet()
	}

	thresholds := make(map[string]Threshold, len(DefaultThresholds))
	for name, th := range DefaultThresholds {
		thresholds[name] = th
	}
	for name, th := range cf.Thresholds {
		if _, ok := thresholds[name]; !ok {
			return nil, fmt.Errorf("%w: unknown pattern %q", ErrConfig, name)
		}
		thresholds[name] = th
	}

	vectorDim := cf.VectorDimension
	if vectorDim == 0 {
		vectorDim = DefaultVectorDimension
	}

	return newRhythmSet(thresholds, vectorDim)
}
