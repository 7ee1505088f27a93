package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/fixers"
	"fixmate_backend/internal/fixers/transport"
	"fixmate_backend/platform/validator"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fixerRoster is the YAML shape accepted by "fixers import".
//
//	fixers:
//	  - name: Sipho Dlamini
//	    phone: "082 555 0101"
//	    skills: [plumbing, geysers]
//	    location: {lat: -26.2041, lon: 28.0473}
//	    approved: true
type fixerRoster struct {
	Fixers []rosterEntry `yaml:"fixers"`
}

type rosterEntry struct {
	Name     string   `yaml:"name"`
	Phone    string   `yaml:"phone"`
	Skills   []string `yaml:"skills"`
	Approved bool     `yaml:"approved"`
	Location *struct {
		Lat float64 `yaml:"lat"`
		Lon float64 `yaml:"lon"`
	} `yaml:"location"`
}

func (e rosterEntry) request() transport.CreateFixerRequest {
	req := transport.CreateFixerRequest{
		FullName:    e.Name,
		PhoneNumber: e.Phone,
		Skills:      strings.Join(e.Skills, ","),
		Approved:    e.Approved,
	}
	if e.Location != nil {
		lat, lon := e.Location.Lat, e.Location.Lon
		req.Latitude, req.Longitude = &lat, &lon
	}
	return req
}

func parseRoster(r io.Reader) (fixerRoster, error) {
	var roster fixerRoster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return fixerRoster{}, fmt.Errorf("parse roster: %w", err)
	}
	return roster, nil
}

var fixersCmd = &cobra.Command{
	Use:   "fixers",
	Short: "Onboard and vet fixers",
}

var fixersImportCmd = &cobra.Command{
	Use:   "import <roster.yaml>",
	Short: "Register every fixer listed in a YAML roster",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		roster, err := parseRoster(f)
		if err != nil {
			return err
		}

		val := validator.New()
		svc := fixers.NewModule(s.pool, val, s.log).Service()
		created, failed := 0, 0
		for i, entry := range roster.Fixers {
			req := entry.request()
			if err := val.Struct(req); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "entry %d (%s): %v\n", i+1, entry.Name, err)
				failed++
				continue
			}
			fixer, err := svc.Create(ctx, req)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "entry %d (%s): %v\n", i+1, entry.Name, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created fixer %d %s\n", fixer.ID, fixer.FullName)
			created++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d failed\n", created, failed)
		if failed > 0 {
			return fmt.Errorf("%d roster entries failed", failed)
		}
		return nil
	}),
}

var fixerFlags struct {
	name     string
	phone    string
	skills   []string
	lat      float64
	lon      float64
	approved bool
}

var fixersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a single fixer",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		req := transport.CreateFixerRequest{
			FullName:    fixerFlags.name,
			PhoneNumber: fixerFlags.phone,
			Skills:      strings.Join(fixerFlags.skills, ","),
			Approved:    fixerFlags.approved,
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			req.Latitude, req.Longitude = &fixerFlags.lat, &fixerFlags.lon
		}

		val := validator.New()
		if err := val.Struct(req); err != nil {
			return err
		}
		fixer, err := fixers.NewModule(s.pool, val, s.log).Service().Create(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created fixer %d %s (%s)\n", fixer.ID, fixer.FullName, fixer.VettingStatus)
		return nil
	}),
}

var fixersVetCmd = &cobra.Command{
	Use:   "vet <fixer-id> <approved|rejected|pending_review>",
	Short: "Change a fixer's vetting status",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status := domain.VettingStatus(args[1])
		svc := fixers.NewModule(s.pool, validator.New(), s.log).Service()
		if err := svc.SetVettingStatus(ctx, id, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fixer %d is now %s\n", id, status)
		return nil
	}),
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <fixer-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc := fixers.NewModule(s.pool, validator.New(), s.log).Service()
			if err := svc.SetActive(ctx, id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fixer %d active=%t\n", id, active)
			return nil
		}),
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func init() {
	f := fixersCreateCmd.Flags()
	f.StringVar(&fixerFlags.name, "name", "", "full name")
	f.StringVar(&fixerFlags.phone, "phone", "", "WhatsApp number")
	f.StringSliceVar(&fixerFlags.skills, "skills", nil, "skills, e.g. plumbing,electrical")
	f.Float64Var(&fixerFlags.lat, "lat", 0, "home latitude")
	f.Float64Var(&fixerFlags.lon, "lon", 0, "home longitude")
	f.BoolVar(&fixerFlags.approved, "approved", false, "skip vetting")
	_ = fixersCreateCmd.MarkFlagRequired("name")
	_ = fixersCreateCmd.MarkFlagRequired("phone")
	_ = fixersCreateCmd.MarkFlagRequired("skills")

	fixersCmd.AddCommand(
		fixersCreateCmd,
		fixersImportCmd,
		fixersVetCmd,
		setActiveCmd("activate", "Put a fixer back into matching", true),
		setActiveCmd("deactivate", "Take a fixer out of matching", false),
	)
}
