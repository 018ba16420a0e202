package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoomoid/ipfix-inspect"
	"github.com/zoomoid/ipfix-inspect/iana/version"
)

// writeIPFIXFile writes a single message announcing template 256 with two fields
func writeIPFIXFile(t *testing.T) string {
	t.Helper()
	record := ipfix.TemplateRecord{
		TemplateId: 256,
		FieldCount: 2,
		Fields:     []ipfix.FieldSpecifier{{Type: 8, Length: 4}, {Type: 82, Length: ipfix.VariableLength}},
	}
	set := &bytes.Buffer{}
	_, err := ipfix.SetHeader{Id: ipfix.TemplateSetId, Length: uint16(ipfix.SetHeaderLength + record.Length())}.Encode(set)
	require.NoError(t, err)
	_, err = record.Encode(set)
	require.NoError(t, err)

	msg := &bytes.Buffer{}
	_, err = ipfix.MessageHeader{
		Version:             version.IPFIX,
		Length:              uint16(ipfix.MessageHeaderLength + set.Len()),
		ObservationDomainId: 3,
	}.Encode(msg)
	require.NoError(t, err)
	msg.Write(set.Bytes())

	path := filepath.Join(t.TempDir(), "capture.ipfix")
	require.NoError(t, os.WriteFile(path, msg.Bytes(), 0o600))
	return path
}

func TestRun_FileReplay(t *testing.T) {
	path := writeIPFIXFile(t)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	app := newApp()
	app.Writer = stdout
	app.ErrWriter = stderr

	err := app.Run([]string{"ipfix-inspect", "--file", path, "--exporter", "192.0.2.7", "--format", "json"})
	require.NoError(t, err, stderr.String())

	var report ipfix.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, 1, report.TotalTemplates)
	require.Len(t, report.TopTemplates, 1)
	assert.Equal(t, "192.0.2.7/3/256", report.TopTemplates[0].Key.String())
	assert.Equal(t, uint64(1), report.Counters.IPFIXPackets)
	require.Len(t, report.ProblematicFieldTypes, 1)
	assert.Equal(t, uint16(82), report.ProblematicFieldTypes[0].Type)
}

func TestRun_ConfigFile(t *testing.T) {
	path := writeIPFIXFile(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("input:\n  file: "+path+"\nreport:\n  format: yaml\nlog:\n  level: error\n"), 0o600))

	stdout := &bytes.Buffer{}
	app := newApp()
	app.Writer = stdout
	app.ErrWriter = &bytes.Buffer{}

	require.NoError(t, app.Run([]string{"ipfix-inspect", "--config", cfgPath}))
	assert.Contains(t, stdout.String(), "totalTemplates: 1")
}

func TestRun_InvalidFlags(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"ipfix-inspect", "--format", "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.format")

	err = app.Run([]string{"ipfix-inspect", "--file", filepath.Join(t.TempDir(), "missing.ipfix")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open IPFIX file")
}
