package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dd0wney/icf/pkg/archive"
	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
)

func runCreate(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("create", "<container>", os.Stderr)
	var common commonFlags
	var cf containerFlags
	common.register(fs)
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := container(fs)
	if err != nil {
		return err
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	opts, err := cf.options(cfg, logger)
	if err != nil {
		return err
	}

	c, err := icf.Open(path, icf.ModeTrunc, opts...)
	if err != nil {
		return err
	}
	if err := c.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created %s (%s)\n", path, c.Format())
	return nil
}

func runAppend(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("append", "<container> <file>...", os.Stderr)
	var common commonFlags
	var cf containerFlags
	common.register(fs)
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := container(fs)
	if err != nil {
		return err
	}
	files := fs.Args()[1:]
	if len(files) == 0 {
		fs.Usage()
		return fmt.Errorf("no input files")
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	opts, err := cf.options(cfg, logger)
	if err != nil {
		return err
	}

	c, err := icf.Open(path, icf.ModeAppend, opts...)
	if err != nil {
		return err
	}
	first := c.Size()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return errors.Join(err, c.Close())
		}
		if err := c.Write(data); err != nil {
			return errors.Join(err, c.Close())
		}
	}
	size := c.Size()
	if err := c.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "appended %d records to %s (indices %d-%d)\n", len(files), path, first, size-1)
	return nil
}

func runInfo(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("info", "<container>", os.Stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := container(fs)
	if err != nil {
		return err
	}
	_, logger, err := common.load()
	if err != nil {
		return err
	}

	c, err := openForRead(path, logger, false)
	if err != nil {
		return err
	}
	defer c.Close()

	h := c.Header()
	s := c.Stats()
	fmt.Fprintln(stdout, c.String())
	fmt.Fprintf(stdout, "  sub-id:      %q\n", string(trimZero(h.SubIdentifier[:])))
	if len(h.Extension) > 0 {
		fmt.Fprintf(stdout, "  extension:   %d bytes %q\n", len(h.Extension), h.Extension)
	}
	if s.DanglingBytes > 0 {
		fmt.Fprintf(stdout, "  dangling:    %d bytes\n", s.DanglingBytes)
	}
	return nil
}

func trimZero(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

func runDump(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("dump", "<container>", os.Stderr)
	var common commonFlags
	common.register(fs)
	from := fs.Uint64("from", 0, "First record index")
	count := fs.Uint64("n", 0, "Number of records (0 = all)")
	preview := fs.Int("preview", 16, "Bytes of each record shown in hex")
	mapped := fs.Bool("mmap", false, "Read through a memory mapping")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := container(fs)
	if err != nil {
		return err
	}
	_, logger, err := common.load()
	if err != nil {
		return err
	}

	c, err := openForRead(path, logger, *mapped)
	if err != nil {
		return err
	}
	defer c.Close()

	end := c.Size()
	if *count > 0 && *from+*count < end {
		end = *from + *count
	}
	if *from > end {
		return fmt.Errorf("start index %d beyond %d records", *from, c.Size())
	}
	records, err := c.ReadRange(*from, end)
	if err != nil {
		return err
	}
	for i, rec := range records {
		shown := rec
		if len(shown) > *preview {
			shown = shown[:*preview]
		}
		fmt.Fprintf(stdout, "%8d %10d  %s\n", *from+uint64(i), len(rec), hex.EncodeToString(shown))
	}
	return nil
}

func runCat(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("cat", "<container> [index...]", os.Stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := container(fs)
	if err != nil {
		return err
	}
	_, logger, err := common.load()
	if err != nil {
		return err
	}

	c, err := openForRead(path, logger, false)
	if err != nil {
		return err
	}
	defer c.Close()

	if fs.NArg() == 1 {
		return c.Iterate(func(_ uint64, rec []byte) error {
			_, err := stdout.Write(rec)
			return err
		})
	}
	for _, arg := range fs.Args()[1:] {
		i, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad record index %q: %w", arg, err)
		}
		rec, err := c.ReadAt(i)
		if err != nil {
			return err
		}
		if _, err := stdout.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// errDangling is returned by verify -strict when recovery skipped bytes.
var errDangling = errors.New("container has dangling bytes")

func runVerify(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("verify", "<container>...", os.Stderr)
	var common commonFlags
	common.register(fs)
	strict := fs.Bool("strict", false, "Fail when recovery skipped dangling bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := container(fs); err != nil {
		return err
	}
	_, logger, err := common.load()
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range fs.Args() {
		err := verifyOne(path, logger, *strict, stdout)
		if err != nil {
			fmt.Fprintf(stdout, "%s: FAIL %v\n", path, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func verifyOne(path string, logger logging.Logger, strict bool, stdout io.Writer) error {
	c, err := openForRead(path, logger, false)
	if err != nil {
		return err
	}
	defer c.Close()

	var bytes int64
	err = c.Iterate(func(_ uint64, rec []byte) error {
		bytes += int64(len(rec))
		return nil
	})
	if err != nil {
		return err
	}

	s := c.Stats()
	fmt.Fprintf(stdout, "%s: OK %d records, %d payload bytes, %d bunches, %d dangling bytes\n",
		path, s.Records, bytes, s.Bunches, s.DanglingBytes)
	if strict && s.DanglingBytes > 0 {
		return errDangling
	}
	return nil
}

func runArchive(args []string, _ io.Reader, stdout io.Writer) error {
	fs := newFlagSet("archive", "<container>...", os.Stderr)
	var common commonFlags
	common.register(fs)
	bucket := fs.String("bucket", "", "Destination bucket (overrides archive.bucket)")
	prefix := fs.String("prefix", "", "Object key prefix (overrides archive.prefix)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := container(fs); err != nil {
		return err
	}
	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	if *bucket != "" {
		cfg.Archive.Bucket = *bucket
	}
	if *prefix != "" {
		cfg.Archive.Prefix = *prefix
	}

	ctx := context.Background()
	a, err := archive.New(ctx, cfg.Archive, logger)
	if err != nil {
		return err
	}
	for _, path := range fs.Args() {
		res, err := a.Upload(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s -> s3://%s/%s (%d records, %d bytes, blake2b %s)\n",
			path, res.Bucket, res.Key, res.Records, res.Size, res.Digest)
	}
	return nil
}
