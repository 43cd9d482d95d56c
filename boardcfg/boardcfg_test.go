package boardcfg

import (
	"strings"
	"testing"
)

const goodPlan = `
name: devboard
buses:
  - id: i2c0
  - id: i2c1
    queue_len: 8
devices:
  - id: compass0
    type: lsm303dlhc
    bus: i2c0
    driver_num: 0x60020
    params:
      accel_addr: 0x19
      mag_addr: 0x1e
  - id: compass1
    type: lsm303dlhc
    bus: i2c1
    driver_num: 0x60021
`

func TestParseValid(t *testing.T) {
	b, err := Parse([]byte(goodPlan))
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "devboard" || len(b.Buses) != 2 || len(b.Devices) != 2 {
		t.Fatalf("parsed %+v", b)
	}
	if b.Buses[1].QueueLen != 8 {
		t.Fatalf("queue_len = %d", b.Buses[1].QueueLen)
	}
	d := b.Devices[0]
	if d.DriverNum != 0x60020 {
		t.Fatalf("driver_num = %#x", d.DriverNum)
	}
	if d.Params["accel_addr"].(int) != 0x19 {
		t.Fatalf("accel_addr = %v", d.Params["accel_addr"])
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"no buses",
			"name: x\ndevices: []\n",
			"declares no buses",
		},
		{
			"duplicate bus",
			"buses: [{id: i2c0}, {id: i2c0}]\n",
			"duplicate bus id",
		},
		{
			"unknown bus ref",
			"buses: [{id: i2c0}]\ndevices: [{id: d, type: t, bus: i2c9, driver_num: 1}]\n",
			"unknown bus",
		},
		{
			"duplicate device id",
			"buses: [{id: i2c0}]\ndevices: [{id: d, type: t, bus: i2c0, driver_num: 1}, {id: d, type: t, bus: i2c0, driver_num: 2}]\n",
			"duplicate device id",
		},
		{
			"shared driver_num",
			"buses: [{id: i2c0}]\ndevices: [{id: a, type: t, bus: i2c0, driver_num: 1}, {id: b, type: t, bus: i2c0, driver_num: 1}]\n",
			"share driver_num",
		},
		{
			"address out of range",
			"buses: [{id: i2c0}]\ndevices: [{id: a, type: t, bus: i2c0, driver_num: 1, params: {accel_addr: 0x99}}]\n",
			"7-bit address",
		},
		{
			"missing type",
			"buses: [{id: i2c0}]\ndevices: [{id: a, bus: i2c0, driver_num: 1}]\n",
			"id and type",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml))
			if err == nil {
				t.Fatal("accepted invalid plan")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("error %q does not mention %q", err, c.want)
			}
		})
	}
}
