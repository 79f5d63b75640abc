package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QuantGov/regcensus-api-go/pkg/normalize"
	"github.com/QuantGov/regcensus-api-go/pkg/regcensus"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

// valuesFlags are the query flags shared by the values commands.
type valuesFlags struct {
	series            []int
	jurisdictions     []int
	jurisdictionNames []string
	dates             []string
	agencies          []int
	clusters          []int
	industries        []string

	datesAsList   bool
	unfiltered    bool
	country       bool
	industryLevel int
	documentType  int
	version       int
	page          int
	download      string
}

func (f *valuesFlags) register(cmd *cobra.Command, withSeries bool) {
	fl := cmd.Flags()
	if withSeries {
		fl.IntSliceVarP(&f.series, "series", "s", nil, "series ids")
	}
	fl.IntSliceVarP(&f.jurisdictions, "jurisdiction", "j", nil, "jurisdiction ids")
	fl.StringSliceVar(&f.jurisdictionNames, "jurisdiction-name", nil, "jurisdiction names")
	fl.StringSliceVarP(&f.dates, "date", "d", nil, "dates (YYYY or YYYY-MM-DD); two dates form an inclusive range")
	fl.IntSliceVarP(&f.agencies, "agency", "a", nil, "agency ids")
	fl.IntSliceVar(&f.clusters, "cluster", nil, "agency cluster ids (see the clusters command)")
	fl.StringSliceVarP(&f.industries, "industry", "i", nil, "industry codes, e.g. NAICS 111")
	fl.BoolVar(&f.datesAsList, "dates-as-list", false, "treat --date as discrete dates instead of a range")
	fl.BoolVar(&f.unfiltered, "unfiltered", false, "include unfiltered industry results (not recommended)")
	fl.BoolVar(&f.country, "country", false, "expand each jurisdiction to its sub-jurisdictions")
	fl.IntVar(&f.industryLevel, "industry-level", regdata.DefaultIndustryLevel, "industry code level")
	fl.IntVar(&f.documentType, "document-type", regdata.DefaultDocumentType, "document type id")
	fl.IntVar(&f.version, "version", 0, "dataset version id (0 = latest)")
	fl.IntVar(&f.page, "page", 0, "fetch only this page of each request (0 = all pages)")
	fl.StringVarP(&f.download, "download", "o", "", "also write the table to a path or sqlite://, postgres://, s3://, gs:// destination")
}

func (f *valuesFlags) request(documentLevel bool) (regcensus.ValuesRequest, error) {
	dates, err := normalize.Dates(f.dates...)
	if err != nil {
		return regcensus.ValuesRequest{}, err
	}
	args := normalize.Args{
		Jurisdiction:     normalize.Many(f.jurisdictions...),
		JurisdictionName: normalize.Many(f.jurisdictionNames...),
		Series:           normalize.Many(f.series...),
		Date:             dates,
		Agency:           normalize.Many(f.agencies...),
		Cluster:          normalize.Many(f.clusters...),
		Industry:         normalize.Many(f.industries...),
		DatesAsList:      f.datesAsList,
		Unfiltered:       f.unfiltered,
		DocumentLevel:    documentLevel,
		Country:          f.country,
		IndustryLevel:    f.industryLevel,
		DocumentType:     f.documentType,
		Page:             f.page,
	}
	if f.version > 0 {
		v := f.version
		args.Version = &v
	}
	return regcensus.ValuesRequest{Args: args, Download: f.download}, nil
}

// NewValuesCommand creates the values command.
func NewValuesCommand(opts *RootOptions) *cobra.Command {
	flags := &valuesFlags{}
	cmd := &cobra.Command{
		Use:   "values",
		Short: "Get summary-level values by year",
		Example: `  regcensus values -s 1,2 -j 38 -d 2010,2019
  regcensus values -s 92 -j 38 -d 1990,2000 -i 111,33 -a 66 -o values.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(false)
			if err != nil {
				return err
			}
			t, err := opts.client.GetValues(cmd.Context(), req)
			return writeTableResult(cmd, opts, t, err)
		},
	}
	flags.register(cmd, true)
	return cmd
}

// NewDocumentValuesCommand creates the document-values command.
func NewDocumentValuesCommand(opts *RootOptions) *cobra.Command {
	flags := &valuesFlags{}
	cmd := &cobra.Command{
		Use:     "document-values",
		Short:   "Get document-level values by date",
		Example: `  regcensus document-values -s 1 -j 38 -d 2020-01-01,2020-01-31`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(true)
			if err != nil {
				return err
			}
			t, err := opts.client.GetDocumentValues(cmd.Context(), req)
			return writeTableResult(cmd, opts, t, err)
		},
	}
	flags.register(cmd, true)
	return cmd
}

// NewDocumentsCommand creates the documents command.
func NewDocumentsCommand(opts *RootOptions) *cobra.Command {
	var (
		jurisdiction int
		dates        []string
		documentType int
	)
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Get per-document restriction counts for a jurisdiction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jurisdiction <= 0 || len(dates) == 0 {
				return usagef("--jurisdiction and --date are required")
			}
			d, err := normalize.Dates(dates...)
			if err != nil {
				return err
			}
			t, err := opts.client.GetDocuments(cmd.Context(), jurisdiction, d, documentType)
			return writeTableResult(cmd, opts, t, err)
		},
	}
	cmd.Flags().IntVarP(&jurisdiction, "jurisdiction", "j", 0, "jurisdiction id")
	cmd.Flags().StringSliceVarP(&dates, "date", "d", nil, "dates (YYYY-MM-DD)")
	cmd.Flags().IntVar(&documentType, "document-type", regdata.DefaultDocumentType, "document type id")
	return cmd
}

// NewReadingTimeCommand creates the reading-time command.
func NewReadingTimeCommand(opts *RootOptions) *cobra.Command {
	flags := &valuesFlags{}
	cmd := &cobra.Command{
		Use:   "reading-time",
		Short: "Convert word counts to working reading time",
		Long:  fmt.Sprintf("Resolve the word-count series and render each value as reading time.\n\n%s", regcensus.ReadingTimeFootnote),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(false)
			if err != nil {
				return err
			}
			t, err := opts.client.GetReadingTime(cmd.Context(), req)
			return writeTableResult(cmd, opts, t, err)
		},
	}
	flags.register(cmd, false)
	return cmd
}
