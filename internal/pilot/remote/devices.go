package remote

import (
	"context"
	"embed"
	"encoding/json"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/pilot"
	"github.com/perclft/qpilot/internal/qerr"
)

type seedFile struct {
	AllDevices []seedDevice `json:"all_devices"`
}

type seedDevice struct {
	Name        string `json:"name"`
	NumQubits   int    `json:"num_qubits"`
	IsSimulator bool   `json:"is_simulator"`
	IsLocal     bool   `json:"is_local"`
}

// LoadSeedDevices reads and parses a provider's embedded
// "<provider>_standard_devices.json" seed file, grounded on
// base_pilot.py's get_standard_devices.
func LoadSeedDevices(fsys embed.FS, filename string) ([]domain.Device, error) {
	raw, err := fsys.ReadFile(filename)
	if err != nil {
		return nil, qerr.Wrap(qerr.Internal, "could not read embedded device seed", err)
	}
	var f seedFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, qerr.Wrap(qerr.Internal, "could not parse embedded device seed", err)
	}
	out := make([]domain.Device, 0, len(f.AllDevices))
	for _, d := range f.AllDevices {
		out = append(out, domain.Device{
			Name:        d.Name,
			NumQubits:   d.NumQubits,
			IsSimulator: d.IsSimulator,
			IsLocal:     d.IsLocal,
		})
	}
	return out, nil
}

// ReconcileDevices upserts every seed device under provider, leaving
// devices from other providers (including hand-added local ones)
// untouched (spec.md §8 S6).
func ReconcileDevices(ctx context.Context, devices pilot.DeviceStore, seed []domain.Device, provider string) error {
	for _, d := range seed {
		d.Provider = provider
		if err := devices.UpsertDevice(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
