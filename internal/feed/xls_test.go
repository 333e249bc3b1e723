package feed

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const (
	cfbSectorSize = 512
	cfbMinStream  = 4096
	cfbEndOfChain = 0xFFFFFFFE
	cfbFATSector  = 0xFFFFFFFD
	cfbNoStream   = 0xFFFFFFFF
)

// xlsFixture writes rows as a single-sheet BIFF8 workbook inside a compound
// file. Cells may be strings (LABEL) or numbers (NUMBER).
func xlsFixture(t *testing.T, rows [][]any) []byte {
	t.Helper()

	var sheet bytes.Buffer
	writeBIFF(&sheet, 0x0809, biffBOF(0x0010))
	for r, row := range rows {
		rec := make([]byte, 16)
		binary.LittleEndian.PutUint16(rec[0:], uint16(r))
		binary.LittleEndian.PutUint16(rec[4:], uint16(len(row)))
		writeBIFF(&sheet, 0x0208, rec)
	}
	for r, row := range rows {
		for c, v := range row {
			cell := make([]byte, 6)
			binary.LittleEndian.PutUint16(cell[0:], uint16(r))
			binary.LittleEndian.PutUint16(cell[2:], uint16(c))

			switch v := v.(type) {
			case string:
				text, err := charmap.Windows1252.NewEncoder().String(v)
				require.NoError(t, err)
				label := binary.LittleEndian.AppendUint16(cell, uint16(len(text)))
				label = append(label, 0)
				writeBIFF(&sheet, 0x0204, append(label, text...))
			case int:
				writeBIFF(&sheet, 0x0203, biffNumber(cell, float64(v)))
			case float64:
				writeBIFF(&sheet, 0x0203, biffNumber(cell, v))
			default:
				t.Fatalf("unsupported xls fixture cell %T", v)
			}
		}
	}
	writeBIFF(&sheet, 0x000A, nil)

	const sheetName = "Hoja1"
	var globals bytes.Buffer
	writeBIFF(&globals, 0x0809, biffBOF(0x0005))
	sheetPos := globals.Len() + 4 + 8 + len(sheetName) + 4
	bound := binary.LittleEndian.AppendUint32(nil, uint32(sheetPos))
	bound = append(bound, 0, 0, byte(len(sheetName)), 0)
	writeBIFF(&globals, 0x0085, append(bound, sheetName...))
	writeBIFF(&globals, 0x000A, nil)
	require.Equal(t, sheetPos, globals.Len())

	stream := append(globals.Bytes(), sheet.Bytes()...)
	size := max(cfbMinStream, (len(stream)+cfbSectorSize-1)/cfbSectorSize*cfbSectorSize)
	padded := make([]byte, size)
	copy(padded, stream)

	return compoundFile(t, padded)
}

func writeBIFF(buf *bytes.Buffer, id uint16, payload []byte) {
	_ = binary.Write(buf, binary.LittleEndian, id)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(payload)))
	buf.Write(payload)
}

func biffBOF(kind uint16) []byte {
	rec := make([]byte, 16)
	binary.LittleEndian.PutUint16(rec[0:], 0x0600)
	binary.LittleEndian.PutUint16(rec[2:], kind)
	return rec
}

func biffNumber(cell []byte, v float64) []byte {
	var buf bytes.Buffer
	buf.Write(cell)
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// compoundFile lays out header, one FAT sector, one directory sector and the
// Workbook stream in consecutive sectors.
func compoundFile(t *testing.T, stream []byte) []byte {
	t.Helper()

	streamSectors := len(stream) / cfbSectorSize
	require.LessOrEqual(t, 2+streamSectors, cfbSectorSize/4)

	header := make([]byte, cfbSectorSize)
	copy(header, cfbMagic)
	binary.LittleEndian.PutUint16(header[0x18:], 0x003E)
	binary.LittleEndian.PutUint16(header[0x1A:], 0x0003)
	binary.LittleEndian.PutUint16(header[0x1C:], 0xFFFE)
	binary.LittleEndian.PutUint16(header[0x1E:], 9)
	binary.LittleEndian.PutUint16(header[0x20:], 6)
	binary.LittleEndian.PutUint32(header[0x2C:], 1)
	binary.LittleEndian.PutUint32(header[0x30:], 1)
	binary.LittleEndian.PutUint32(header[0x38:], cfbMinStream)
	binary.LittleEndian.PutUint32(header[0x3C:], cfbEndOfChain)
	binary.LittleEndian.PutUint32(header[0x44:], cfbEndOfChain)
	for i := 0; i < 109; i++ {
		binary.LittleEndian.PutUint32(header[0x4C+4*i:], cfbNoStream)
	}
	binary.LittleEndian.PutUint32(header[0x4C:], 0)

	fat := make([]byte, cfbSectorSize)
	for i := 0; i < cfbSectorSize/4; i++ {
		binary.LittleEndian.PutUint32(fat[4*i:], cfbNoStream)
	}
	binary.LittleEndian.PutUint32(fat[0:], cfbFATSector)
	binary.LittleEndian.PutUint32(fat[4:], cfbEndOfChain)
	for i := 0; i < streamSectors; i++ {
		next := uint32(3 + i)
		if i == streamSectors-1 {
			next = cfbEndOfChain
		}
		binary.LittleEndian.PutUint32(fat[4*(2+i):], next)
	}

	dir := make([]byte, cfbSectorSize)
	cfbEntry(dir[0:128], "Root Entry", 5, 1, cfbEndOfChain, 0)
	cfbEntry(dir[128:256], "Workbook", 2, cfbNoStream, 2, uint32(len(stream)))

	out := make([]byte, 0, 3*cfbSectorSize+len(stream))
	out = append(out, header...)
	out = append(out, fat...)
	out = append(out, dir...)
	return append(out, stream...)
}

func cfbEntry(b []byte, name string, kind byte, child, start, size uint32) {
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	binary.LittleEndian.PutUint16(b[64:], uint16(2*(len(units)+1)))
	b[66] = kind
	b[67] = 1
	binary.LittleEndian.PutUint32(b[68:], cfbNoStream)
	binary.LittleEndian.PutUint32(b[72:], cfbNoStream)
	binary.LittleEndian.PutUint32(b[76:], child)
	binary.LittleEndian.PutUint32(b[116:], start)
	binary.LittleEndian.PutUint32(b[120:], size)
}

func TestParseInventoryXLS(t *testing.T) {
	data := xlsFixture(t, [][]any{
		{"NP", "Descripción", "Linea", "Almacén", "Sucursal", "Existencia", "Fec_Ult_Compra"},
		{"ab-1", "BUJÍA", "MOTOR", "GENERAL CULIACAN", "CULIACAN", 4, 45658},
		{1234, "FILTRO", "MOTOR", "MOSTRADOR", "CULIACAN", 2.5, "01/03/2025"},
	})

	records, err := ParseInventory("INVENTARIO_CRA.xls", data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "AB-1", records[0].NP)
	assert.Equal(t, "BUJÍA", records[0].Description)
	assert.Equal(t, "GENERAL CULIACAN", records[0].Warehouse)
	assert.InDelta(t, 4, records[0].OnHand, 1e-9)
	require.NotNil(t, records[0].LastPurchase)
	assert.Equal(t, 2025, records[0].LastPurchase.Year())

	assert.Equal(t, "1234", records[1].NP)
	assert.InDelta(t, 2.5, records[1].OnHand, 1e-9)
	require.NotNil(t, records[1].LastPurchase)
	assert.Equal(t, 3, int(records[1].LastPurchase.Month()))
}

func TestParseSalesXLS(t *testing.T) {
	data := xlsFixture(t, [][]any{
		{"NP", "ALMACEN", "FECHA", "CANTIDAD"},
		{"A1", "GENERAL CULIACAN", "15/03/2025", 2},
		{"A1", "GENERAL CULIACAN", "16/03/2025", -1},
	})

	events, err := ParseSales("VENTAS_CULIACAN_2025_MASTER.xls", data)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, -1, events[1].Quantity, 1e-9)
}

func TestReadTableRejectsBrokenXLS(t *testing.T) {
	_, err := ReadTable("roto.xls", append(append([]byte{}, cfbMagic...), 0))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
