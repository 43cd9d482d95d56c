// Package boardcfg parses and validates the YAML board plan: which shared
// buses exist and which devices sit on them. All configuration validation
// happens here, before any component Finalize runs, so construction itself
// cannot fail at runtime.
package boardcfg

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Board is one parsed board plan.
type Board struct {
	Name    string   `yaml:"name"`
	Buses   []Bus    `yaml:"buses"`
	Devices []Device `yaml:"devices"`
}

// Bus names one shared physical bus.
type Bus struct {
	ID       string `yaml:"id"`
	QueueLen int    `yaml:"queue_len"` // master job queue; 0 = default
}

// Device is one driver instance to assemble.
type Device struct {
	ID        string         `yaml:"id"`
	Type      string         `yaml:"type"`
	Bus       string         `yaml:"bus"`
	DriverNum uint32         `yaml:"driver_num"`
	Params    map[string]any `yaml:"params"`
}

// Parse decodes and validates a board plan.
func Parse(raw []byte) (Board, error) {
	var b Board
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return Board{}, fmt.Errorf("boardcfg: %w", err)
	}
	if err := b.validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (b Board) validate() error {
	if len(b.Buses) == 0 {
		return fmt.Errorf("boardcfg: board %q declares no buses", b.Name)
	}
	buses := map[string]bool{}
	for _, bus := range b.Buses {
		if bus.ID == "" {
			return fmt.Errorf("boardcfg: bus with empty id")
		}
		if buses[bus.ID] {
			return fmt.Errorf("boardcfg: duplicate bus id %q", bus.ID)
		}
		buses[bus.ID] = true
	}

	ids := map[string]bool{}
	nums := map[uint32]string{}
	for _, d := range b.Devices {
		if d.ID == "" || d.Type == "" {
			return fmt.Errorf("boardcfg: device needs id and type (id=%q)", d.ID)
		}
		if ids[d.ID] {
			return fmt.Errorf("boardcfg: duplicate device id %q", d.ID)
		}
		ids[d.ID] = true
		if !buses[d.Bus] {
			return fmt.Errorf("boardcfg: device %q references unknown bus %q", d.ID, d.Bus)
		}
		// Driver numbers key the grant registry: one entry per number,
		// ever. Catch collisions here rather than panicking at finalize.
		if prev, taken := nums[d.DriverNum]; taken {
			return fmt.Errorf("boardcfg: devices %q and %q share driver_num %d", prev, d.ID, d.DriverNum)
		}
		nums[d.DriverNum] = d.ID
		if err := validateAddrs(d); err != nil {
			return err
		}
	}
	return nil
}

func validateAddrs(d Device) error {
	for _, key := range []string{"accel_addr", "mag_addr", "addr"} {
		v, ok := d.Params[key]
		if !ok {
			continue
		}
		n, ok := v.(int)
		if !ok || n < 0 || n > 0x7F {
			return fmt.Errorf("boardcfg: device %q: %s must be a 7-bit address, got %v", d.ID, key, v)
		}
	}
	return nil
}
