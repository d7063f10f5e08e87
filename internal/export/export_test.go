package export

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"github.com/jask/papertriage/internal/triage"
)

func classified(t *testing.T) triage.State {
	t.Helper()
	var recs []*triage.Record
	for i, title := range []string{"A", "B", "C"} {
		id := int64(i + 1)
		recs = append(recs, &triage.Record{ID: &id, Title: title})
	}
	e := triage.NewEngine(recs, triage.NewState("c.xlsx"), nil)
	require.True(t, e.Commit(triage.Keep))
	require.True(t, e.Commit(triage.Drop))
	require.True(t, e.Commit(triage.Keep))
	return e.Snapshot()
}

func titlesAndLabels(rows []Row) [][2]interface{} {
	out := make([][2]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, [2]interface{}{r.Title, r.Label})
	}
	return out
}

func TestByHistoryAndByListsOrderDiffers(t *testing.T) {
	s := classified(t)
	require.Equal(t, [][2]interface{}{{"A", 1}, {"B", 0}, {"C", 1}}, titlesAndLabels(ByHistory(s.History)))
	require.Equal(t, [][2]interface{}{{"A", 1}, {"C", 1}, {"B", 0}}, titlesAndLabels(ByLists(s.Keep, s.Drop)))
	require.Equal(t, ByLists(s.Keep, s.Drop), Rows(Lists, s))
	require.Equal(t, ByHistory(s.History), Rows(History, s))
}

func TestMissingIDUsesDefault(t *testing.T) {
	rec := &triage.Record{Title: "no id"}
	rows := ByHistory([]triage.HistoryEntry{{Decision: triage.Drop, Record: rec}})
	require.Equal(t, []Row{{Index: DefaultIndex, Title: "no id", Label: 0}}, rows)
	require.Equal(t, DefaultIndex, ByLists([]*triage.Record{rec}, nil)[0].Index)
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, ByHistory(classified(t).History)))
	require.Equal(t, "index,title,label\n1,A,1\n2,B,0\n3,C,1\n", buf.String())
}

func TestWriteListsCSV(t *testing.T) {
	s := classified(t)
	var buf bytes.Buffer
	require.NoError(t, WriteListsCSV(&buf, ByLists(s.Keep, s.Drop)))
	require.Equal(t, "index,title,keep,drop\n1,A,1,0\n3,C,1,0\n2,B,0,1\n", buf.String())
}

func TestCSVEscaping(t *testing.T) {
	rows := []Row{
		{Index: 1, Title: `Roads, rails`, Label: 1},
		{Index: 2, Title: `The "address" problem`, Label: 0},
		{Index: 3, Title: "two\nlines", Label: 1},
		{Index: 4, Title: "plain", Label: 0},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, rows))
	want := "index,title,label\n" +
		"1,\"Roads, rails\",1\n" +
		"2,\"The \"\"address\"\" problem\",0\n" +
		"3,\"two\nlines\",1\n" +
		"4,plain,0\n"
	require.Equal(t, want, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	s := classified(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Lists, XLSX, Rows(Lists, s)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"index", "title", "keep", "drop"},
		{"1", "A", "1", "0"},
		{"3", "C", "1", "0"},
		{"2", "B", "0", "1"},
	}, rows)
}

func readSheet(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func TestWriteHistoryXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryXLSX(&buf, ByHistory(classified(t).History)))
	require.Equal(t, [][]string{
		{"index", "title", "label"},
		{"1", "A", "1"},
		{"2", "B", "0"},
		{"3", "C", "1"},
	}, readSheet(t, &buf))
}

func TestWriteListsXLSX(t *testing.T) {
	s := classified(t)
	var buf bytes.Buffer
	require.NoError(t, WriteListsXLSX(&buf, append(ByLists(s.Keep, s.Drop), Row{Index: DefaultIndex, Title: "주소, 체계", Label: 0})))
	require.Equal(t, [][]string{
		{"index", "title", "keep", "drop"},
		{"1", "A", "1", "0"},
		{"3", "C", "1", "0"},
		{"2", "B", "0", "1"},
		{strconv.FormatInt(DefaultIndex, 10), "주소, 체계", "0", "1"},
	}, readSheet(t, &buf))

	buf.Reset()
	require.NoError(t, WriteListsXLSX(&buf, nil))
	require.Equal(t, [][]string{{"index", "title", "keep", "drop"}}, readSheet(t, &buf))
}

func TestWriteUnknownFormat(t *testing.T) {
	require.Error(t, Write(&bytes.Buffer{}, History, Format("pdf"), nil))
}

func TestEncodeWriterCP949(t *testing.T) {
	var buf bytes.Buffer
	w, err := EncodeWriter(&buf, "cp949")
	require.NoError(t, err)
	require.NoError(t, WriteHistoryCSV(w, []Row{{Index: 7, Title: "주소 체계", Label: 1}}))
	require.NoError(t, w.Close())

	require.NotContains(t, buf.String(), "주소", "output is not utf-8")
	decoded, err := korean.EUCKR.NewDecoder().Bytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "index,title,label\n7,주소 체계,1\n", string(decoded))
}

func TestEncodeWriterPassthroughAndUnknown(t *testing.T) {
	var buf bytes.Buffer
	w, err := EncodeWriter(&buf, "UTF-8")
	require.NoError(t, err)
	_, err = w.Write([]byte("주소"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, "주소", buf.String())

	_, err = EncodeWriter(&buf, "latin9")
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "dbpia_data_new_result.csv", FileName("dbpia_data_new.xlsx", History, CSV))
	require.Equal(t, "dbpia_data_new_lists.csv", FileName("dbpia_data_new.xlsx", Lists, CSV))
	require.Equal(t, "kci_info_new_lists.xlsx", FileName("/data/kci_info_new.xlsx", Lists, XLSX))
	require.NotEqual(t, "a.csv", FileName("a.csv", Lists, CSV))
}

func TestParseKindAndFormat(t *testing.T) {
	k, err := ParseKind(" History ")
	require.NoError(t, err)
	require.Equal(t, History, k)
	_, err = ParseKind("both")
	require.Error(t, err)

	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	require.Equal(t, XLSX, f)
	_, err = ParseFormat("ods")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "export:"))
}
