// Command pairhuff encodes, decodes and verifies files with the pairhuff
// codec, and serves the codec over HTTP.
//
//	pairhuff encode IN OUT
//	pairhuff decode [-max-tree N] IN OUT
//	pairhuff verify IN
//	pairhuff serve [-addr ADDR] [-db PATH] [-cache N] [-log-level LEVEL]
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/seiflotfy/pairhuff"
	"github.com/seiflotfy/pairhuff/internal/report"
	"github.com/seiflotfy/pairhuff/internal/server"
	"github.com/seiflotfy/pairhuff/internal/store"
)

var (
	_version   string = "UNSET"
	_buildTime string = "UNSET"
)

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, err := strconv.Atoi(envOr(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func usage() {
	fmt.Fprintf(os.Stderr, "pairhuff %s (built %s)\n\n", _version, _buildTime)
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  pairhuff encode IN OUT\n")
	fmt.Fprintf(os.Stderr, "  pairhuff decode [-max-tree N] IN OUT\n")
	fmt.Fprintf(os.Stderr, "  pairhuff verify IN\n")
	fmt.Fprintf(os.Stderr, "  pairhuff serve [flags]\n")
}

func main() {
	log := logrus.New()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "encode":
		err = runEncode(log, args)
	case "decode":
		err = runDecode(log, args)
	case "verify":
		err = runVerify(args)
	case "serve":
		err = runServe(log, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal(os.Args[1] + " failed")
	}
}

func twoPaths(name string, args []string) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("%s: expected IN and OUT, got %d arguments", name, len(args))
	}
	return args[0], args[1], nil
}

func runEncode(log *logrus.Logger, args []string) error {
	in, out, err := twoPaths("encode", args)
	if err != nil {
		return err
	}
	data, mode, err := report.ReadInput(in)
	if err != nil {
		return err
	}
	c, stats, err := pairhuff.NewEncoder().EncodeWithStats(data)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	n, err := c.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return err
	}

	entry := log.WithFields(logrus.Fields{
		"in":       in,
		"out":      out,
		"mode":     mode,
		"original": len(data),
		"encoded":  n,
		"symbols":  stats.DistinctSymbols,
	})
	if stats.DroppedTrailingByte {
		entry.Warn("odd input length, trailing byte not encoded")
	}
	entry.Info("encoded")
	return nil
}

func runDecode(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	maxTree := fs.Int("max-tree", envIntOr("PAIRHUFF_MAX_TREE", 0), "largest accepted tree section in bytes (0 for the format limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in, out, err := twoPaths("decode", fs.Args())
	if err != nil {
		return err
	}
	packed, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	data, err := pairhuff.NewEncoder(pairhuff.WithMaxTreeBytes(*maxTree)).Decompress(packed)
	if err != nil {
		return fmt.Errorf("decode %s: %w", in, err)
	}
	if report.ModeFor(out) == report.ModeText && !utf8.Valid(data) {
		log.WithField("out", out).Warn("decoded content is not valid UTF-8")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"in": in, "out": out, "decoded": len(data)}).Info("decoded")
	return nil
}

func runVerify(args []string) error {
	if len(args) != 1 {
		return errors.New("verify: expected IN")
	}
	data, _, err := report.ReadInput(args[0])
	if err != nil {
		return err
	}
	r, err := report.Verify(pairhuff.NewEncoder(), data)
	if err != nil {
		return err
	}
	if _, err := r.WriteTo(os.Stdout); err != nil {
		return err
	}
	if !r.DigestMatch {
		return errors.New("verify: decoded content differs from input")
	}
	return nil
}

func runServe(log *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", envOr("PAIRHUFF_ADDR", "localhost:7089"), "listen address")
	dbPath := fs.String("db", envOr("PAIRHUFF_DB", "./pairhuff.db"), "sqlite database path")
	cacheSize := fs.Int("cache", envIntOr("PAIRHUFF_CACHE", 128), "decoded blobs kept in memory")
	level := fs.String("log-level", envOr("PAIRHUFF_LOG_LEVEL", "info"), "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	enc := pairhuff.NewEncoder()
	st, err := store.Open(*dbPath, store.WithCacheSize(*cacheSize), store.WithLogger(log), store.WithEncoder(enc))
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.New(enc, st, log),
		ReadHeaderTimeout: 15 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": *addr, "db": *dbPath, "version": _version}).Info("starting pairhuff server")
		errc <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	select {
	case err := <-errc:
		return err
	case <-stop:
		log.Info("shutting down")
		return srv.Close()
	}
}
