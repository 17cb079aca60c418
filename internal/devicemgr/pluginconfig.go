package devicemgr

import (
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
)

// SetPluginConfig validates params against pluginID's declared
// ConfigurationDescription, pushes the filled result to the plugin
// through SetConfiguration, and persists it under the plugin's
// PluginConfig/<pluginId>/... settings keys.
func (m *Manager) SetPluginConfig(pluginID ids.PluginID, params paramtype.ParamList) error {
	p, err := m.registry.Plugin(pluginID)
	if err != nil {
		return err
	}

	filled, err := m.validator.VerifyParams(p.ConfigurationDescription(), params, true)
	if err != nil {
		return err
	}

	if err := p.SetConfiguration(filled); err != nil {
		return err
	}

	for _, param := range filled {
		if err := m.persistence.SetPluginParam(pluginID, param.Name, param.Value); err != nil {
			m.logger.Error("failed to persist plugin config", "plugin_id", pluginID, "param", param.Name, "error", err)
		}
	}
	return nil
}
