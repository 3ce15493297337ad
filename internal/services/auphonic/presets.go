package auphonic

import (
	"context"
	"fmt"
	"strings"

	"podtenuki/internal/services"
)

// ListPresets returns the presets saved on the account.
func (c *Client) ListPresets(ctx context.Context) ([]Preset, error) {
	body, err := c.getJSON(ctx, "presets.json")
	if err != nil {
		return nil, c.wrapRequest(ctx, "list presets", err)
	}
	presets, err := decodePresets(body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "list presets", "decode presets", err)
	}
	return presets, nil
}

// PresetByName finds a preset by case-insensitive name.
func (c *Client) PresetByName(ctx context.Context, name string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, services.Wrap(services.ErrConfiguration, stageName, "preset lookup", "preset name required", nil)
	}
	presets, err := c.ListPresets(ctx)
	if err != nil {
		return Preset{}, err
	}
	for _, preset := range presets {
		if strings.EqualFold(strings.TrimSpace(preset.Name), name) {
			return preset, nil
		}
	}
	return Preset{}, services.Wrap(services.ErrConfiguration, stageName, "preset lookup",
		fmt.Sprintf("no preset named %q (%d available)", name, len(presets)), nil)
}

// ResolvePreset returns presetUUID when set, otherwise looks presetName up.
func (c *Client) ResolvePreset(ctx context.Context, presetUUID, presetName string) (string, error) {
	if id := strings.TrimSpace(presetUUID); id != "" && strings.TrimSpace(presetName) == "" {
		return id, nil
	}
	if strings.TrimSpace(presetName) == "" {
		return strings.TrimSpace(presetUUID), nil
	}
	preset, err := c.PresetByName(ctx, presetName)
	if err != nil {
		return "", err
	}
	return preset.UUID, nil
}
