package ipfix

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zoomoid/ipfix-inspect/iana/semantics"
	"github.com/zoomoid/ipfix-inspect/iana/status"
)

func MustReadCSV(r io.Reader) map[uint16]InformationElement {
	m, err := ReadCSV(r)
	if err != nil {
		panic(err)
	}
	return m
}

// ReadCSV reads information elements from a CSV in the column order
// ElementID,Name,Abstract Data Type,Data Type Semantics,Status,Units.
// The first line is a header and skipped. Rows with ranges of ids, as used by
// IANA for unassigned blocks, are skipped as well.
func ReadCSV(r io.Reader) (map[uint16]InformationElement, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = 6

	_, _ = csvReader.Read()

	fieldMap := make(map[uint16]InformationElement)

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := strconv.ParseUint(record[0], 10, 16)
		if err != nil {
			continue
		}
		if id >= uint64(penMask) {
			return nil, fmt.Errorf("information element id %d out of range", id)
		}

		fieldMap[uint16(id)] = InformationElement{
			Id:        uint16(id),
			Name:      record[1],
			Type:      record[2],
			Semantics: semantics.Parse(record[3]),
			Status:    status.Parse(record[4]),
			Units:     record[5],
		}
	}

	return fieldMap, nil
}
