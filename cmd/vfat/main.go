package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aligator/vfat"
	"github.com/aligator/vfat/blockdev"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

// device is a block device which has to be closed after use.
type device interface {
	blockdev.BlockDevice
	io.Closer
}

func openDevice(c *cli.Context) (device, error) {
	image := c.String("image")
	raw := c.String("raw")

	switch {
	case image != "" && raw != "":
		return nil, errors.New("use either --image or --raw")
	case image != "":
		dev, err := blockdev.OpenImage(afero.NewOsFs(), image)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case raw != "":
		dev, err := blockdev.OpenRaw(raw)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	return nil, errors.New("no device given, use --image or --raw")
}

// withVolume mounts the device and runs fn on it.
func withVolume(c *cli.Context, fn func(v *vfat.VFat) error) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)

	dev, err := openDevice(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	v, err := vfat.Mount(dev,
		vfat.WithCacheSize(c.Int("cache-sectors")),
		vfat.WithMaxChainHops(uint32(c.Uint("max-chain-hops"))),
		vfat.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("could not mount the device: %w", err)
	}

	return fn(v)
}

func info(c *cli.Context) error {
	return withVolume(c, func(v *vfat.VFat) error {
		g := v.Geometry()
		fmt.Printf("Label:               %v\n", v.Label())
		fmt.Printf("Partition start:     %v\n", g.PartitionStart)
		fmt.Printf("Partition sectors:   %v\n", g.PartitionSectors)
		fmt.Printf("Bytes per sector:    %v\n", g.BytesPerSector)
		fmt.Printf("Sectors per cluster: %v\n", g.SectorsPerCluster)
		fmt.Printf("Reserved sectors:    %v\n", g.ReservedSectors)
		fmt.Printf("FATs:                %v\n", g.NumFATs)
		fmt.Printf("Sectors per FAT:     %v\n", g.SectorsPerFAT)
		fmt.Printf("Root cluster:        %v\n", g.RootCluster)

		stats := v.CacheStats()
		fmt.Printf("Cache:               %v hits, %v misses, %v sectors resident\n", stats.Hits, stats.Misses, stats.Resident)
		return nil
	})
}

func formatEntry(entry vfat.Entry, long bool) string {
	name := entry.Name()
	if entry.IsDir() {
		name += "/"
	}
	if !long {
		return name
	}

	m := entry.Metadata()
	return fmt.Sprintf("%-5s %10d  %v  %v", attributes(m.Attributes), m.Size, m.Modified, name)
}

func attributes(a vfat.Attributes) string {
	flags := []byte("-----")
	if a.IsDir() {
		flags[0] = 'd'
	}
	if a.ReadOnly() {
		flags[1] = 'r'
	}
	if a.Hidden() {
		flags[2] = 'h'
	}
	if a.System() {
		flags[3] = 's'
	}
	if a.Archive() {
		flags[4] = 'a'
	}
	return string(flags)
}

func ls(c *cli.Context) error {
	return withVolume(c, func(v *vfat.VFat) error {
		entry, err := v.Open(c.Args().First())
		if err != nil {
			return err
		}

		dir, ok := entry.AsDir()
		if !ok {
			fmt.Println(formatEntry(entry, c.Bool("long")))
			return nil
		}

		it, err := dir.Entries()
		if err != nil {
			return err
		}
		for entry, ok := it.Next(); ok; entry, ok = it.Next() {
			if entry.Metadata().Hidden() && !c.Bool("all") {
				continue
			}
			fmt.Println(formatEntry(entry, c.Bool("long")))
		}
		return nil
	})
}

func cat(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no file given")
	}

	return withVolume(c, func(v *vfat.VFat) error {
		entry, err := v.Open(c.Args().First())
		if err != nil {
			return err
		}

		file, ok := entry.AsFile()
		if !ok {
			return fmt.Errorf("%v is a directory", entry.Name())
		}
		defer file.Close()

		_, err = io.Copy(os.Stdout, file)
		return err
	})
}

func stat(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no path given")
	}

	return withVolume(c, func(v *vfat.VFat) error {
		entry, err := v.Open(c.Args().First())
		if err != nil {
			return err
		}

		m := entry.Metadata()
		fmt.Printf("Name:       %v\n", entry.Name())
		fmt.Printf("Attributes: %v\n", attributes(m.Attributes))
		fmt.Printf("Size:       %v\n", m.Size)
		fmt.Printf("Metadata:   %v\n", m)
		if file, ok := entry.AsFile(); ok {
			fmt.Printf("Cluster:    %v\n", file.Cluster())
		}
		if dir, ok := entry.AsDir(); ok {
			fmt.Printf("Cluster:    %v\n", dir.Cluster())
		}
		return nil
	})
}

func tree(c *cli.Context) error {
	return withVolume(c, func(v *vfat.VFat) error {
		root := c.Args().First()
		if root == "" {
			root = "/"
		}

		return afero.Walk(vfat.NewFs(v), root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			rel := strings.Trim(strings.TrimPrefix(path.Clean(p), path.Clean(root)), "/")
			if rel == "" {
				fmt.Println(p)
				return nil
			}

			depth := strings.Count(rel, "/") + 1
			if info.IsDir() {
				fmt.Printf("%v%v/\n", strings.Repeat("  ", depth), info.Name())
				return nil
			}
			fmt.Printf("%v%v\n", strings.Repeat("  ", depth), info.Name())
			return nil
		})
	})
}

func main() {
	app := &cli.App{
		Name:    "vfat",
		Usage:   "Inspect FAT32 volumes read only",
		Version: "0.1.0",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "disk image containing a MBR with a FAT32 partition",
				EnvVars: []string{"VFAT_IMAGE"},
			},
			&cli.StringFlag{
				Name:    "raw",
				Usage:   "raw block device, e.g. /dev/mmcblk0",
				EnvVars: []string{"VFAT_RAW"},
			},
			&cli.IntFlag{
				Name:    "cache-sectors",
				Usage:   "number of sectors kept in the sector cache",
				Value:   vfat.DefaultCacheSize,
				EnvVars: []string{"VFAT_CACHE_SECTORS"},
			},
			&cli.UintFlag{
				Name:    "max-chain-hops",
				Usage:   "maximum length of a cluster chain, 0 uses the size of the FAT",
				EnvVars: []string{"VFAT_MAX_CHAIN_HOPS"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "logrus log level",
				Value:   "warning",
				EnvVars: []string{"VFAT_LOG_LEVEL"},
			},
		},

		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "show the volume label and geometry",
				Action: info,
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "show hidden entries"},
					&cli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "show the metadata"},
				},
				Action: ls,
			},
			{
				Name:      "cat",
				Usage:     "print a file",
				ArgsUsage: "path",
				Action:    cat,
			},
			{
				Name:      "stat",
				Usage:     "show the metadata of a file or directory",
				ArgsUsage: "path",
				Action:    stat,
			},
			{
				Name:      "tree",
				Usage:     "walk a directory recursively",
				ArgsUsage: "[path]",
				Action:    tree,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		logrus.Fatal(err)
	}
}
