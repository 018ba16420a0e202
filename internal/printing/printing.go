// Package printing renders reports for humans and machines
package printing

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/zoomoid/ipfix-inspect"
)

const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// Render writes report to w in the given format
func Render(w io.Writer, report *ipfix.Report, format string) error {
	switch format {
	case FormatTable, "":
		return RenderTable(w, report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// RenderTable prints the report as a sequence of tables
func RenderTable(w io.Writer, report *ipfix.Report) error {
	c := report.Counters

	fmt.Fprintf(w, "IPFIX statistics from %s to %s (%s)\n\n",
		report.Since.Format(time.RFC3339), report.GeneratedAt.Format(time.RFC3339),
		report.GeneratedAt.Sub(report.Since).Round(time.Second))

	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Counter", "Value"})
	summary.SetAlignment(tablewriter.ALIGN_LEFT)
	summary.AppendBulk([][]string{
		{"Packets", u(c.Packets)},
		{"Bytes", u(c.Bytes)},
		{"IPFIX packets", u(c.IPFIXPackets)},
		{"NetFlow v5 packets", u(c.NetFlowV5Packets)},
		{"NetFlow v9 packets", u(c.NetFlowV9Packets)},
		{"Unknown version packets", u(c.UnknownVersionPackets)},
		{"Discarded packets", u(c.DiscardedPackets)},
		{"Template sets", u(c.TemplateSets)},
		{"Options template sets", fmt.Sprintf("%d (%d bytes)", c.OptionsTemplateSets, c.OptionsTemplateBytes)},
		{"Data sets", fmt.Sprintf("%d (%d bytes)", c.DataSets, c.DataSetBytes)},
		{"Unsupported sets", u(c.UnsupportedSets)},
		{"Malformed sets", u(c.MalformedSets)},
		{"Truncated template records", u(c.TruncatedRecords)},
		{"Variable-length fields", u(c.VariableLengthFields)},
		{"Unusually large fields", u(c.LargeFields)},
		{"Distinct templates", strconv.Itoa(report.TotalTemplates)},
		{"Distinct field types", strconv.Itoa(report.TotalFieldTypes)},
	})
	summary.Render()

	fmt.Fprintf(w, "\nTop %d templates\n", len(report.TopTemplates))
	templates := tablewriter.NewWriter(w)
	templates.SetHeader([]string{"#", "Source", "Domain", "Template", "Count", "Fields"})
	for i, t := range report.TopTemplates {
		fields := fmt.Sprintf("%d", t.DecodedFields)
		if t.Truncated() {
			fields = fmt.Sprintf("%d of %d (truncated)", t.DecodedFields, t.FieldCount)
		}
		templates.Append([]string{
			strconv.Itoa(i + 1),
			t.Key.Source.String(),
			strconv.FormatUint(uint64(t.Key.ObservationDomainId), 10),
			strconv.FormatUint(uint64(t.Key.TemplateId), 10),
			u(t.Count),
			fields,
		})
	}
	templates.Render()

	fmt.Fprintf(w, "\nTop %d field types\n", len(report.TopFieldTypes))
	fieldTypes := tablewriter.NewWriter(w)
	fieldTypes.SetHeader([]string{"#", "Type", "Name", "Semantics", "Count", "Mean Length", "Enterprise", "Lengths"})
	for i, f := range report.TopFieldTypes {
		name := f.Name
		if f.Retired {
			name += " (retired)"
		}
		fieldTypes.Append([]string{
			strconv.Itoa(i + 1),
			strconv.FormatUint(uint64(f.Type), 10),
			name,
			f.Semantics,
			u(f.Count),
			strconv.FormatFloat(f.MeanLength, 'f', 1, 64),
			strconv.FormatFloat(f.EnterprisePercent, 'f', 1, 64) + "%",
			Lengths(f.Lengths, f.LengthsElided),
		})
	}
	fieldTypes.Render()

	fmt.Fprintf(w, "\nProblematic field types\n")
	if len(report.ProblematicFieldTypes) == 0 {
		fmt.Fprintln(w, "none")
		return nil
	}
	problematic := tablewriter.NewWriter(w)
	problematic.SetHeader([]string{"Type", "Name", "Max Length", "65535 Count", ">1000 Count"})
	for _, p := range report.ProblematicFieldTypes {
		problematic.Append([]string{
			strconv.FormatUint(uint64(p.Type), 10),
			p.Name,
			strconv.FormatUint(uint64(p.MaxLength), 10),
			u(p.VariableLengthCount),
			u(p.LargeLengthCount),
		})
	}
	problematic.Render()
	return nil
}

// Lengths joins distinct lengths, marking the elided middle of long lists
func Lengths(lengths []uint16, elided bool) string {
	s := make([]string, 0, len(lengths)+1)
	for i, l := range lengths {
		if elided && i == 3 {
			s = append(s, "...")
		}
		s = append(s, strconv.FormatUint(uint64(l), 10))
	}
	return strings.Join(s, ", ")
}

func u(v uint64) string {
	return strconv.FormatUint(v, 10)
}
