// cmd/sensor-demo: assembles a board plan over a simulated bus and exposes
// an interactive console. Every path the real assembly takes is exercised:
// YAML plan -> builder registry -> component finalize -> mux/device handles
// -> driver state machine -> telemetry topics.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/shlex"

	"drivercore-go/boardcfg"
	"drivercore-go/components"
	"drivercore-go/eventbus"
	"drivercore-go/hwbus"
	"drivercore-go/kernel"
	_ "drivercore-go/services/telemetry"
	"drivercore-go/sim"
	"drivercore-go/virtuali2c"
)

const defaultPlan = `
name: sim-devboard
buses:
  - id: i2c0
devices:
  - id: compass0
    type: lsm303dlhc
    bus: i2c0
    driver_num: 0x60020
`

func main() {
	raw := []byte(defaultPlan)
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read plan:", err)
			os.Exit(1)
		}
		raw = b
	}
	board, err := boardcfg.Parse(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ebus := eventbus.New(16)
	kern, assembly := kernel.New()

	// One simulated e-compass per declared bus, each behind its own
	// worker-backed master and mux.
	sims := map[string]*sim.LSM303DLHC{}
	muxes := map[string]*virtuali2c.Mux{}
	for _, bus := range board.Buses {
		s := sim.NewLSM303DLHC()
		s.SetAccelRaw(1024, -2048, 16384) // ~1/16 g steps at 2 g
		s.SetMagRaw(120, -340, 560)
		master := hwbus.New(s.Bus, bus.QueueLen)
		master.Start(ctx)
		sims[bus.ID] = s
		muxes[bus.ID] = virtuali2c.NewMux(master)
	}

	for _, dev := range board.Devices {
		b, ok := components.Lookup(dev.Type)
		if !ok {
			fmt.Fprintf(os.Stderr, "no builder for type %q (device %q)\n", dev.Type, dev.ID)
			os.Exit(1)
		}
		inst, err := b.Build(components.BuildInput{
			ID:        dev.ID,
			DriverNum: dev.DriverNum,
			Params:    dev.Params,
			Mux:       muxes[dev.Bus],
			Kernel:    kern,
			Assembly:  assembly,
			Bus:       ebus,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "build %q: %v\n", dev.ID, err)
			os.Exit(1)
		}
		go inst.Run(ctx)
		fmt.Printf("assembled %s (%s) on %s\n", dev.ID, dev.Type, dev.Bus)
	}

	// Console monitor: print everything the sensors publish.
	conn := ebus.NewConnection("console")
	mon := conn.Subscribe(eventbus.T("sensor", eventbus.Wildcard, eventbus.Wildcard))
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-mon.Channel():
				fmt.Printf("  [%s/%s] %+v\n", msg.Topic[1], msg.Topic[2], msg.Payload)
			}
		}
	}()

	fmt.Println("commands: presence|configure|readcfg|accel|mag <id>, set-accel <bus> <x> <y> <z>, quit")
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		args, err := shlex.Split(in.Text())
		if err != nil {
			fmt.Println("parse:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "quit", "exit":
			return
		case "presence", "configure", "readcfg", "accel", "mag":
			if len(args) != 2 {
				fmt.Println("usage:", args[0], "<device-id>")
				continue
			}
			conn.Publish(conn.NewMessage(
				eventbus.T("sensor", args[1], "control", verbOf(args[0])),
				nil, false,
			))
		case "set-accel":
			if len(args) != 5 {
				fmt.Println("usage: set-accel <bus-id> <x> <y> <z>")
				continue
			}
			s, ok := sims[args[1]]
			if !ok {
				fmt.Println("unknown bus:", args[1])
				continue
			}
			var v [3]int16
			bad := false
			for i := 0; i < 3; i++ {
				n, err := strconv.ParseInt(args[2+i], 10, 16)
				if err != nil {
					fmt.Println("bad value:", args[2+i])
					bad = true
					break
				}
				v[i] = int16(n)
			}
			if !bad {
				s.SetAccelRaw(v[0], v[1], v[2])
			}
		default:
			fmt.Println("unknown command:", args[0])
		}
	}
}

func verbOf(cmd string) string {
	switch cmd {
	case "readcfg":
		return "read_config"
	case "accel":
		return "sample_accel"
	case "mag":
		return "sample_mag"
	default:
		return cmd
	}
}
