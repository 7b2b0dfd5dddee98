package xpt

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sans-lang/sans/internal/diag"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/value"
)

const (
	recordSize          = 80
	defaultMaxCharWidth = 200
	numericWidth        = 8
	nameFieldLen        = recordSize - 4
	libraryHeader       = "SANS_XPT_V1_LIBRARY_HEADER"
	memberHeader        = "SANS_XPT_V1_MEMBER_HEADER"
)

func padRecord(s string) []byte {
	b := make([]byte, recordSize)
	copy(b, s)
	for i := len(s); i < recordSize; i++ {
		b[i] = ' '
	}
	return b
}

type colMeta struct {
	name     string
	isChar   bool
	width    int
}

// Writer implements engine.SaveWriter for the XPT format. MaxCharWidth
// overrides the default 200-byte character column limit (wired from
// internal/config's EngineConfig.CharWidthCap); zero means use the default.
type Writer struct {
	MaxCharWidth int
}

func (w Writer) Write(path, _ string, t *engine.Table) error {
	limit := w.MaxCharWidth
	if limit == 0 {
		limit = defaultMaxCharWidth
	}
	return WriteFileWithLimit(path, t, limit)
}

// WriteFile serializes t to path in the library/member/descriptor/
// observation layout, using the default 200-byte character column limit.
func WriteFile(path string, t *engine.Table) error {
	return WriteFileWithLimit(path, t, defaultMaxCharWidth)
}

// WriteFileWithLimit is WriteFile with an explicit character-width limit.
func WriteFileWithLimit(path string, t *engine.Table, maxCharWidth int) error {
	metas := make([]colMeta, len(t.Columns))
	for i, name := range t.Columns {
		isChar := false
		width := 0
		for _, row := range t.Rows {
			v := row[i]
			if v.IsNull() {
				continue
			}
			if v.Kind == value.KindString || v.Kind == value.KindBool {
				isChar = true
			}
			if len(v.Text()) > width {
				width = len(v.Text())
			}
		}
		if !isChar {
			width = numericWidth
		}
		if width == 0 {
			width = 1
		}
		if isChar && width > maxCharWidth {
			return fmt.Errorf("%s: column %q exceeds max char width %d", diag.ESansRuntimeXPTCharWidth, name, maxCharWidth)
		}
		metas[i] = colMeta{name: name, isChar: isChar, width: width}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(padRecord(libraryHeader)); err != nil {
		return err
	}

	mh := make([]byte, recordSize)
	copy(mh, memberHeader)
	binary.BigEndian.PutUint32(mh[len(memberHeader):], uint32(len(t.Rows)))
	binary.BigEndian.PutUint32(mh[len(memberHeader)+4:], uint32(len(metas)))
	for i := len(memberHeader) + 8; i < recordSize; i++ {
		mh[i] = ' '
	}
	if _, err := f.Write(mh); err != nil {
		return err
	}

	for _, m := range metas {
		rec := make([]byte, recordSize)
		if m.isChar {
			rec[0] = 'C'
		} else {
			rec[0] = 'N'
		}
		binary.BigEndian.PutUint16(rec[1:3], uint16(m.width))
		rec[3] = 0
		nameBytes := []byte(m.name)
		if len(nameBytes) > nameFieldLen {
			nameBytes = nameBytes[:nameFieldLen]
		}
		copy(rec[4:], nameBytes)
		for i := 4 + len(nameBytes); i < recordSize; i++ {
			rec[i] = ' '
		}
		if _, err := f.Write(rec); err != nil {
			return err
		}
	}

	for _, row := range t.Rows {
		for i, m := range metas {
			v := row[i]
			if m.isChar {
				buf := make([]byte, m.width)
				for j := range buf {
					buf[j] = ' '
				}
				if !v.IsNull() {
					copy(buf, v.Text())
				}
				if _, err := f.Write(buf); err != nil {
					return err
				}
				continue
			}
			var enc [8]byte
			if v.IsNull() {
				enc = missingMarker
			} else {
				f64, err := strconv.ParseFloat(numericText(v), 64)
				if err != nil {
					return fmt.Errorf("xpt: non-numeric value in numeric column: %q", v.Text())
				}
				enc = ieeeToIBM(f64)
			}
			if _, err := f.Write(enc[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

func numericText(v value.Value) string {
	if v.Kind == value.KindInt {
		return v.I.String()
	}
	return v.D.String()
}

// ReadFile parses an XPT file written by WriteFile. Character values have
// trailing spaces trimmed; missing numerics become NULL.
func ReadFile(path string, loc diag.Loc) (*engine.Table, *diag.Diagnostic) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.New(diag.ESansRuntimeInputNotFound, fmt.Sprintf("cannot open %q: %s", path, err), &loc)
	}
	if len(data) < recordSize*2 {
		return nil, diag.New(diag.ESansRuntimeXPTCorrupt, fmt.Sprintf("%q: truncated XPT header", path), &loc)
	}
	libRec := string(data[:recordSize])
	if !strings.HasPrefix(libRec, libraryHeader) {
		return nil, diag.New(diag.ESansRuntimeXPTCorrupt, fmt.Sprintf("%q: bad library header", path), &loc)
	}
	memRec := data[recordSize : recordSize*2]
	if !strings.HasPrefix(string(memRec), memberHeader) {
		return nil, diag.New(diag.ESansRuntimeXPTCorrupt, fmt.Sprintf("%q: bad member header", path), &loc)
	}
	rowCount := binary.BigEndian.Uint32(memRec[len(memberHeader):])
	colCount := binary.BigEndian.Uint32(memRec[len(memberHeader)+4:])

	offset := recordSize * 2
	if len(data) < offset+int(colCount)*recordSize {
		return nil, diag.New(diag.ESansRuntimeXPTCorrupt, fmt.Sprintf("%q: truncated descriptor block", path), &loc)
	}
	metas := make([]colMeta, colCount)
	for i := 0; i < int(colCount); i++ {
		rec := data[offset : offset+recordSize]
		offset += recordSize
		isChar := rec[0] == 'C'
		if !isChar && rec[0] != 'N' {
			return nil, diag.New(diag.ESansRuntimeXPTCorrupt, fmt.Sprintf("%q: bad namestr type tag", path), &loc)
		}
		width := int(binary.BigEndian.Uint16(rec[1:3]))
		name := strings.TrimRight(string(rec[4:]), " ")
		metas[i] = colMeta{name: name, isChar: isChar, width: width}
	}

	cols := make([]string, colCount)
	for i, m := range metas {
		cols[i] = m.name
	}
	t := engine.NewTable(cols)

	for r := 0; r < int(rowCount); r++ {
		row := make([]value.Value, colCount)
		for i, m := range metas {
			if offset+m.width > len(data) {
				return nil, diag.New(diag.ESansRuntimeXPTCorrupt, fmt.Sprintf("%q: truncated observation block", path), &loc)
			}
			chunk := data[offset : offset+m.width]
			offset += m.width
			if m.isChar {
				s := strings.TrimRight(string(chunk), " ")
				if s == "" {
					row[i] = value.Null()
				} else {
					row[i] = value.Str(s)
				}
				continue
			}
			var b8 [8]byte
			copy(b8[:], chunk)
			f64, ok := ibmToIEEE(b8)
			if !ok {
				row[i] = value.Null()
				continue
			}
			d, _ := value.ParseDecimal(strconv.FormatFloat(f64, 'f', -1, 64))
			row[i] = value.Dec(d)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
