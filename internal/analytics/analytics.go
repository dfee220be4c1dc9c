// Package analytics derives analytics messages from dispatched actions.
//
// The only derivation today is the installAddon message: when the host
// dispatches an addon-install action, a message with the addon's identity
// and the addons-catalog app context is produced. The derivation is pure;
// recording is the journal's job.
package analytics

import (
	"encoding/json"
	"fmt"

	"github.com/NikolayTNikolov/stremio-core-web/internal/runtime"
)

// ActionInstallAddon is the action type the derivation watches for.
const ActionInstallAddon = "Ctx.InstallAddon"

// Message is one analytics event.
type Message struct {
	Name       string     `json:"name"`
	Data       Data       `json:"data"`
	AppContext AppContext `json:"app_context"`
}

// Data identifies the addon the message is about.
type Data struct {
	AddonTransportURL string `json:"addon_transport_url"`
	AddonID           string `json:"addon_id"`
}

// StateParams describe the addons-catalog view the install is attributed to.
type StateParams struct {
	Cat    string  `json:"cat"`
	ColURL *string `json:"col_url"`
	Type   string  `json:"type"`
}

// State names the app view and its parameters.
type State struct {
	Name   string      `json:"name"`
	Params StateParams `json:"params"`
}

// AppContext carries the app location the message was produced from.
type AppContext struct {
	URL   string `json:"url"`
	State State  `json:"state"`
}

// addonDescriptor is the subset of the install-addon args the derivation
// reads. Everything else in the payload stays opaque.
type addonDescriptor struct {
	TransportURL string `json:"transportUrl"`
	Manifest     struct {
		ID string `json:"id"`
	} `json:"manifest"`
	Flags struct {
		Official bool `json:"official"`
	} `json:"flags"`
}

// FromAction builds the installAddon analytics message for an addon-install
// action. Returns (nil, false) for every other action. Args that do not
// decode as an addon descriptor are an error: the action reached the engine
// either way, but the analytics derivation has nothing truthful to report.
func FromAction(a runtime.Action) (*Message, bool, error) {
	if a.Type != ActionInstallAddon {
		return nil, false, nil
	}

	var descriptor addonDescriptor
	if err := json.Unmarshal(a.Args, &descriptor); err != nil {
		return nil, true, fmt.Errorf("decode addon descriptor: %w", err)
	}

	category := "community"
	if descriptor.Flags.Official {
		category = "official"
	}

	return &Message{
		Name: "installAddon",
		Data: Data{
			AddonTransportURL: descriptor.TransportURL,
			AddonID:           descriptor.Manifest.ID,
		},
		AppContext: AppContext{
			URL: fmt.Sprintf("/addons/%s/all", category),
			State: State{
				Name: "addons.cat.type",
				Params: StateParams{
					Cat:  category,
					Type: "all",
				},
			},
		},
	}, true, nil
}
