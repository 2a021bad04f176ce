package state

import (
	"encoding/gob"
	"time"

	"github.com/google/uuid"

	store "github.com/avolkov/orbit-desktop/storage"
)

func init() {
	// Register types for gob encoding/decoding
	gob.Register(time.Time{})
}

const stateFile = "state"

// Device identifies this install to the Orbit API. The mobile platform keys
// sessions to a device, so the ID is generated once and kept for the
// lifetime of the install.
type Device struct {
	ID        string
	CreatedAt time.Time
}

// Session is the non-secret part of the login state. Tokens live in the
// keyring, not here.
type Session struct {
	Identifier  string
	LastLogin   time.Time
	LastRefresh time.Time
}

// AppState is everything the client persists between runs
type AppState struct {
	Device  Device
	Session Session
}

// Load reads the persisted state and fills in a device identity on first run
func Load(storage *store.Storage) *AppState {
	appState := &AppState{}
	storage.Load(stateFile, appState)

	if appState.Device.ID == "" {
		appState.Device = Device{
			ID:        uuid.NewString(),
			CreatedAt: time.Now(),
		}
	}
	return appState
}

// Save writes the state back to disk
func Save(storage *store.Storage, appState *AppState) error {
	return storage.Save(stateFile, appState)
}
