// Command ratsfsmount mounts (or first formats, then mounts) a ratsfs image
// as a real FUSE filesystem.
//
// Grounded on dargueta/disko's cmd/main.go (urfave/cli/v2 App with a single
// primary action), extended with a --profile flag backed by the profile
// package's embedded CSV catalog.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ratsfs/ratsfs/device"
	"github.com/ratsfs/ratsfs/host"
	"github.com/ratsfs/ratsfs/mount"
	"github.com/ratsfs/ratsfs/profile"
)

func main() {
	app := &cli.App{
		Name:  "ratsfsmount",
		Usage: "Mount a ratsfs image as a FUSE filesystem",
		Commands: []*cli.Command{
			{
				Name:      "mount",
				Usage:     "Format (if needed) and mount an image",
				ArgsUsage: "MOUNTPOINT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "device", Required: true, Usage: "path to the backing image file"},
					&cli.StringFlag{Name: "profile", Usage: "named size preset to format a missing device with"},
					&cli.BoolFlag{Name: "debug", Usage: "log every FUSE request"},
				},
				Action: runMount,
			},
			{
				Name:  "profiles",
				Usage: "List known device-size profiles",
				Action: func(c *cli.Context) error {
					for _, p := range profile.List() {
						fmt.Printf("%-10s %10d blocks  %s\n", p.Slug, p.TotalBlocks, p.Description)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err)
	}
}

func runMount(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one argument: MOUNTPOINT", 1)
	}
	mountpoint := c.Args().Get(0)
	devicePath := c.String("device")

	if err := ensureDeviceFile(devicePath, c.String("profile")); err != nil {
		return err
	}

	dev, err := device.OpenFile(devicePath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open device: %s", err), 1)
	}

	m, err := mount.Open(dev)
	if err != nil {
		return cli.Exit(fmt.Sprintf("mount: %s", err), 1)
	}

	server, err := host.Serve(m, mountpoint, c.Bool("debug"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("serve: %s", err), 1)
	}

	log.Printf("ratsfs mounted at %s (device %s)", mountpoint, devicePath)
	server.Wait()
	return m.Unmount()
}

// ensureDeviceFile creates and pre-sizes devicePath if it doesn't exist yet,
// using the named profile (or the "small" default) to pick its size.
func ensureDeviceFile(devicePath, profileSlug string) error {
	if _, err := os.Stat(devicePath); err == nil {
		return nil
	}

	if profileSlug == "" {
		profileSlug = "small"
	}
	p, err := profile.Get(profileSlug)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	f, err := os.Create(devicePath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("create device file: %s", err), 1)
	}
	defer f.Close()

	if err := f.Truncate(p.SizeBytes()); err != nil {
		return cli.Exit(fmt.Sprintf("size device file: %s", err), 1)
	}
	return nil
}
