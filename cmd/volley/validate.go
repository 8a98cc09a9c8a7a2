package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tomz197/volley/internal/projectile"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog.yaml>",
		Short: "Validate a projectile catalog",
		Long: `Parses a projectile catalog, fills defaults and validates every
definition. Prints the resolved definitions on success and exits
non-zero on the first invalid one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}
}

func runValidate(cmd *cobra.Command, path string) error {
	logger := newLogger(cmd)

	defs, err := projectile.LoadCatalog(path)
	if err != nil {
		if oopsErr, ok := oops.AsOops(err); ok {
			logger.Error("catalog invalid", "path", path, "code", oopsErr.Code(), "context", oopsErr.Context(), "err", err)
		}
		return err
	}

	printDefinitions(cmd.OutOrStdout(), defs)
	logger.Info("catalog valid", "path", path, "definitions", len(defs))
	return nil
}

func printDefinitions(w io.Writer, defs []projectile.Definition) {
	fmt.Fprintf(w, "%-12s %5s %8s %8s %6s %6s  %s\n", "ID", "POOL", "LIFETIME", "GRAVITY", "RADIUS", "BOUNCE", "COLLISION")
	for _, d := range defs {
		lifetime := "inf"
		if d.Physics.Lifetime > 0 {
			lifetime = fmt.Sprintf("%.1fs", d.Physics.Lifetime)
		}
		fmt.Fprintf(w, "%-12s %5d %8s %8.2f %6.2f %6.2f  %s\n",
			d.ID, d.PoolSize, lifetime, d.Physics.Gravity.Len(),
			d.Collision.Radius, d.Physics.Bounciness, collisionMode(d))
	}
}

func collisionMode(d projectile.Definition) string {
	var parts []string
	if d.Collision.CheckTerrain {
		parts = append(parts, "terrain")
	}
	if d.Collision.CheckObjects {
		parts = append(parts, "objects")
	}
	if len(parts) == 0 {
		return "none"
	}
	mode := strings.Join(parts, "+")
	if d.Physics.StickOnHit {
		mode += " stick"
	}
	if len(d.Collision.Layers) > 0 {
		mode += " [" + strings.Join(d.Collision.Layers, ",") + "]"
	}
	return mode
}
