package main

import (
	"github.com/spf13/cobra"

	"github.com/QuantGov/regcensus-api-go/pkg/regcensus"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

// NewMetadataCommands creates the metadata lookup commands. They always
// print JSON.
func NewMetadataCommands(opts *RootOptions) []*cobra.Command {
	return []*cobra.Command{
		newJurisdictionsCommand(opts),
		newSeriesCommand(opts),
		newDocumentTypesCommand(opts),
		newAgenciesCommand(opts),
		newIndustriesCommand(opts),
		newClustersCommand(opts),
		newDatafinderCommand(opts),
		newPeriodsCommand(opts),
		newDatesCommand(opts),
		newVersionsCommand(opts),
		newDocumentationCommand(opts),
	}
}

func newJurisdictionsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jurisdictions",
		Short: "List jurisdictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.ListJurisdictions(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newSeriesCommand(opts *RootOptions) *cobra.Command {
	var jurisdiction int
	cmd := &cobra.Command{
		Use:   "series",
		Short: "List data series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.ListSeries(cmd.Context(), jurisdiction)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&jurisdiction, "jurisdiction", "j", 0, "only series with data for this jurisdiction")
	return cmd
}

func newDocumentTypesCommand(opts *RootOptions) *cobra.Command {
	var jurisdiction int
	cmd := &cobra.Command{
		Use:   "document-types",
		Short: "List document types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.ListDocumentTypes(cmd.Context(), jurisdiction)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&jurisdiction, "jurisdiction", "j", 0, "jurisdiction id")
	return cmd
}

func newAgenciesCommand(opts *RootOptions) *cobra.Command {
	var f regcensus.AgencyFilter
	cmd := &cobra.Command{
		Use:   "agencies",
		Short: "List agencies of a jurisdiction or matching a keyword",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.ListAgencies(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&f.JurisdictionID, "jurisdiction", "j", 0, "jurisdiction id")
	cmd.Flags().StringVarP(&f.Keyword, "keyword", "k", "", "agency name keyword")
	return cmd
}

func newIndustriesCommand(opts *RootOptions) *cobra.Command {
	var f regcensus.IndustryFilter
	cmd := &cobra.Command{
		Use:   "industries",
		Short: "List industry codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.ListIndustries(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&f.Level, "level", regdata.DefaultIndustryLevel, "code level (2 to 6 digits for NAICS)")
	cmd.Flags().StringVar(&f.Standard, "standard", regcensus.DefaultIndustryStandard, "classification standard (NAICS, BEA, SOC)")
	cmd.Flags().StringVarP(&f.Keyword, "keyword", "k", "", "industry name keyword")
	return cmd
}

func newClustersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clusters",
		Short: "List agency clusters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.ListClusters(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

// jurisdictionCommand builds a command taking --jurisdiction (required) and
// --document-type.
func jurisdictionCommand(use, short string, run func(cmd *cobra.Command, jurisdiction, documentType int) (any, error)) *cobra.Command {
	var jurisdiction, documentType int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jurisdiction <= 0 {
				return usagef("--jurisdiction is required")
			}
			out, err := run(cmd, jurisdiction, documentType)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&jurisdiction, "jurisdiction", "j", 0, "jurisdiction id")
	cmd.Flags().IntVar(&documentType, "document-type", 0, "document type id (0 = all)")
	return cmd
}

func newDatafinderCommand(opts *RootOptions) *cobra.Command {
	return jurisdictionCommand("datafinder", "Show which series and years have data",
		func(cmd *cobra.Command, j, dt int) (any, error) {
			return opts.client.GetDatafinder(cmd.Context(), j, dt)
		})
}

func newPeriodsCommand(opts *RootOptions) *cobra.Command {
	return jurisdictionCommand("periods", "List the years each series has data for",
		func(cmd *cobra.Command, j, dt int) (any, error) {
			return opts.client.GetPeriods(cmd.Context(), j, dt)
		})
}

func newDatesCommand(opts *RootOptions) *cobra.Command {
	return jurisdictionCommand("dates", "List the years with data",
		func(cmd *cobra.Command, j, dt int) (any, error) {
			return opts.client.ListDates(cmd.Context(), j, dt)
		})
}

func newVersionsCommand(opts *RootOptions) *cobra.Command {
	var latest bool
	cmd := jurisdictionCommand("versions", "List dataset versions, newest first",
		func(cmd *cobra.Command, j, dt int) (any, error) {
			if !latest {
				return opts.client.GetVersions(cmd.Context(), j, dt)
			}
			v, ok, err := opts.client.LatestVersion(cmd.Context(), j, dt)
			if err != nil || !ok {
				return nil, err
			}
			return v, nil
		})
	cmd.Flags().BoolVar(&latest, "latest", false, "print only the newest version")
	return cmd
}

func newDocumentationCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "documentation",
		Short: "Show project documentation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.client.GetDocumentation(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
