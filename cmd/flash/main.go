// SPDX-License-Identifier: MIT
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/sigurn/crc16"
	"github.com/urfave/cli/v2"
	"github.com/usedbytes/log"

	"github.com/hexlace/flash-tools/lib/blob"
	"github.com/hexlace/flash-tools/lib/fmap"
	"github.com/hexlace/flash-tools/lib/layout"
	"github.com/hexlace/flash-tools/lib/mount"
)

func loadImage(ctx *cli.Context) (*blob.Bytes, string, error) {
	if ctx.Args().Len() != 1 {
		return nil, "", fmt.Errorf("IMAGE_FILE is required")
	}
	fname := ctx.Args().First()

	src, err := blob.Open(fname)
	if err != nil {
		return nil, fname, err
	}

	log.Verbosef("Loaded %s, %d bytes\n", fname, src.Len())

	return src, fname, nil
}

// sectionWindow applies the offset/length flags to an image.
func sectionWindow(ctx *cli.Context, src *blob.Bytes) *blob.Window {
	offset := ctx.Int64("offset")
	length := ctx.Int64("length")
	if length == 0 {
		length = src.Len() - offset
	}
	return blob.NewWindow(src, offset, length)
}

func scanAction(ctx *cli.Context) error {
	src, _, err := loadImage(ctx)
	if err != nil {
		return err
	}

	offset, found := fmap.FindSignature(src)
	if !found {
		return fmt.Errorf("no flash map signature in image")
	}

	log.Printf("Flash map signature at %#x\n", offset)

	return nil
}

func mapAction(ctx *cli.Context) error {
	src, _, err := loadImage(ctx)
	if err != nil {
		return err
	}

	fm, offset, err := mount.LocateFlashMap(src)
	if err != nil {
		return err
	}

	mount.FlashMapTree(src, fm, offset).Print(os.Stdout)

	if ctx.IsSet("out") {
		l := layout.FromFlashMap(fm, src.Len(), offset)
		err = l.WriteFile(ctx.String("out"))
		if err != nil {
			return err
		}
		log.Println("Wrote layout to", ctx.String("out"))
	}

	return nil
}

func sectionsAction(ctx *cli.Context) error {
	src, _, err := loadImage(ctx)
	if err != nil {
		return err
	}

	win := sectionWindow(ctx, src)
	root, err := mount.MountSections(win, ctx.Int64("offset"))
	if err != nil {
		return err
	}

	root.Print(os.Stdout)

	return nil
}

func filenameFor(name string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		if strings.ContainsRune("\t\n\f\r%<>/'\"\\`:{}()$+*?|@!", r) {
			return -1
		}
		return r
	}, name)
}

func extractAction(ctx *cli.Context) error {
	src, _, err := loadImage(ctx)
	if err != nil {
		return err
	}

	win := sectionWindow(ctx, src)
	root, err := mount.MountSections(win, ctx.Int64("offset"))
	if err != nil {
		return err
	}

	outdir := ctx.String("outdir")
	err = os.MkdirAll(outdir, 0755)
	if err != nil {
		return errors.Wrap(err, "Creating output directory")
	}

	crct := crc16.MakeTable(crc16.CRC16_XMODEM)

	bar := pb.StartNew(len(root.Children))
	defer bar.Finish()

	for _, e := range root.Children {
		bar.Increment()

		body := e.Body()
		if body == nil {
			continue
		}

		data, err := body.ReadAt(0, int(body.Len()))
		if err != nil {
			// The header promised more bytes than the image
			// holds. Skip the body, keep going.
			log.Println("Skipping", e.Name, "-", err)
			continue
		}

		base := filepath.Join(outdir, filenameFor(e.Name))
		err = os.WriteFile(base+".bin", data, 0644)
		if err != nil {
			return errors.Wrap(err, "Writing section body")
		}

		crc := make([]byte, 2)
		binary.LittleEndian.PutUint16(crc, crc16.Checksum(data, crct))
		err = os.WriteFile(base+".crc", crc, 0644)
		if err != nil {
			return errors.Wrap(err, "Writing section CRC")
		}

		log.Verbosef("Wrote %s.bin (%d bytes)\n", base, len(data))
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:  "flash",
		Usage: "A tool for picking apart raw firmware flash images",
		// Just ignore errors - we'll handle them ourselves in main()
		ExitErrHandler: func(c *cli.Context, e error) {},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     "verbose",
				Aliases:  []string{"v"},
				Usage:    "Enable more output",
				Required: false,
				Value:    false,
			},
		},
	}

	offsetFlag := &cli.Int64Flag{
		Name:     "offset",
		Aliases:  []string{"o"},
		Usage:    "Byte offset of the section run within the image",
		Required: false,
		Value:    0,
	}
	lengthFlag := &cli.Int64Flag{
		Name:     "length",
		Aliases:  []string{"l"},
		Usage:    "Length of the section run (default: to end of image)",
		Required: false,
		Value:    0,
	}

	app.Commands = []*cli.Command{
		{
			Name:      "scan",
			Usage:     "Report the flash map signature offset",
			ArgsUsage: "IMAGE_FILE",
			Action:    scanAction,
		},
		{
			Name:      "map",
			Usage:     "Mount the flash map and list its areas",
			ArgsUsage: "IMAGE_FILE",
			Action:    mapAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "out",
					Usage:    "Write the layout as TOML to this file",
					Required: false,
				},
			},
		},
		{
			Name:      "sections",
			Usage:     "Walk FFS sections and list their frames",
			ArgsUsage: "IMAGE_FILE",
			Action:    sectionsAction,
			Flags:     []cli.Flag{offsetFlag, lengthFlag},
		},
		{
			Name:      "extract",
			Usage:     "Write each section body out, with a CRC16 sidecar",
			ArgsUsage: "IMAGE_FILE",
			Action:    extractAction,
			Flags: []cli.Flag{
				offsetFlag,
				lengthFlag,
				&cli.StringFlag{
					Name:     "outdir",
					Aliases:  []string{"d"},
					Usage:    "Directory to extract into",
					Required: false,
					Value:    ".",
				},
			},
		},
	}

	app.Before = func(ctx *cli.Context) error {
		log.SetUseLog(false)

		log.SetVerbose(ctx.Bool("verbose"))
		log.Verboseln("Extra output enabled.")
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Println("ERROR:", err)
		if v, ok := err.(cli.ExitCoder); ok {
			os.Exit(v.ExitCode())
		} else {
			os.Exit(1)
		}
	}
}
