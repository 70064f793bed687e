package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// NewOrganizedFromPCDFile reads an organized cloud from a .pcd file.
func NewOrganizedFromPCDFile(path string) (*Organized, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening pcd file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	cloud, err := ReadOrganizedPCD(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %q", path)
	}
	return cloud, nil
}

func colorToPCDInt(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func pcdIntToColor(c uint32) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// WriteOrganizedPCD writes the cloud with its grid layout (WIDTH x HEIGHT). NaN points are kept
// so that the layout survives the round trip. Colors are written as a packed rgb field.
func WriteOrganizedPCD(cloud *Organized, out io.Writer, outputType PCDType) error {
	if outputType == PCDCompressed {
		return errors.New("compressed PCD not yet implemented")
	}
	var header strings.Builder
	header.WriteString("VERSION .7\n")
	if cloud.HasColor() {
		header.WriteString("FIELDS x y z rgb\n" +
			"SIZE 4 4 4 4\n" +
			"TYPE F F F U\n" +
			"COUNT 1 1 1 1\n")
	} else {
		header.WriteString("FIELDS x y z\n" +
			"SIZE 4 4 4\n" +
			"TYPE F F F\n" +
			"COUNT 1 1 1\n")
	}
	fmt.Fprintf(&header, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Width(), cloud.Height(), cloud.Width()*cloud.Height())
	if outputType == PCDBinary {
		header.WriteString("DATA binary\n")
	} else {
		header.WriteString("DATA ascii\n")
	}
	if _, err := io.WriteString(out, header.String()); err != nil {
		return err
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud *Organized, out io.Writer, pcdtype PCDType) error {
	w := bufio.NewWriter(out)
	var err error
	cloud.Iterate(func(x, y int, pos r3.Vector) bool {
		c, hasColor := cloud.Color(x, y)
		switch pcdtype {
		case PCDBinary:
			size := 12
			if hasColor {
				size = 16
			}
			buf := make([]byte, size)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
			if hasColor {
				binary.LittleEndian.PutUint32(buf[12:], colorToPCDInt(c))
			}
			_, err = w.Write(buf)
		default:
			if hasColor {
				_, err = fmt.Fprintf(w, "%s %s %s %d\n", formatCoord(pos.X), formatCoord(pos.Y), formatCoord(pos.Z), colorToPCDInt(c))
			} else {
				_, err = fmt.Fprintf(w, "%s %s %s\n", formatCoord(pos.X), formatCoord(pos.Y), formatCoord(pos.Z))
			}
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func formatCoord(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	types  []pcdValType
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch strings.Join(tokens, " ") {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb", "x y z rgba":
			header.fields = pcdPointColor
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil || header.size[i] != 4 {
				return errors.Errorf("invalid SIZE field %s, only 4 byte fields are supported", token)
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		header.types = make([]pcdValType, len(tokens))
		for i, token := range tokens {
			switch pcdValType(token) {
			case pcdValFloat, pcdValInt, pcdValUInt:
			default:
				return errors.Errorf("invalid TYPE field %s", token)
			}
			header.types[i] = pcdValType(token)
		}
		for i := 0; i < 3; i++ {
			if header.types[i] != pcdValFloat {
				return errors.New("x y z must be float fields")
			}
		}
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid COUNT field %s", token)
			}
			if header.count[i] != 1 {
				return errors.Errorf("unsupported COUNT %d", header.count[i])
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
		if header.height <= 1 {
			return errors.Wrapf(ErrNotOrganized, "HEIGHT %d", header.height)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		for _, token := range tokens {
			if _, err = strconv.ParseFloat(token, 64); err != nil {
				return errors.Wrapf(err, "invalid VIEWPOINT field %s", token)
			}
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadOrganizedPCD reads an organized cloud (HEIGHT > 1) from pcd data. Points are kept in the
// unit of the file, NaN included.
func ReadOrganizedPCD(inRaw io.Reader) (*Organized, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	cloud := NewOrganized(int(header.width), int(header.height))
	var err error
	switch header.data {
	case PCDAscii:
		err = readPCDAscii(in, header, cloud)
	case PCDBinary:
		err = readPCDBinary(in, header, cloud)
	default:
		err = errors.New("compressed pcd not yet supported")
	}
	if err != nil {
		return nil, err
	}
	return cloud, nil
}

func readPCDAscii(in *bufio.Reader, header pcdHeader, cloud *Organized) error {
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return errors.Wrapf(err, "error reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return errors.Errorf("unexpected number of fields in point %d", i)
		}
		values := make([]uint32, len(tokens))
		for j, token := range tokens {
			values[j], err = parseASCIIField(token, header.types[j])
			if err != nil {
				return errors.Wrapf(err, "invalid point %d field %s", i, token)
			}
		}
		setPoint(cloud, header, i, values)
	}
	return nil
}

// parseASCIIField returns the raw 32 bits of the field so that floats and packed colors share
// one decoding path with binary data.
func parseASCIIField(token string, valType pcdValType) (uint32, error) {
	switch valType {
	case pcdValFloat:
		f, err := strconv.ParseFloat(token, 32)
		if err != nil {
			return 0, err
		}
		return math.Float32bits(float32(f)), nil
	case pcdValInt:
		v, err := strconv.ParseInt(token, 10, 32)
		return uint32(v), err
	default:
		v, err := strconv.ParseUint(token, 10, 32)
		return uint32(v), err
	}
}

func readPCDBinary(in *bufio.Reader, header pcdHeader, cloud *Organized) error {
	buf := make([]byte, 4*int(header.fields))
	values := make([]uint32, int(header.fields))
	for i := 0; i < int(header.points); i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return errors.Wrapf(err, "error reading point %d", i)
		}
		for j := range values {
			values[j] = binary.LittleEndian.Uint32(buf[4*j:])
		}
		setPoint(cloud, header, i, values)
	}
	return nil
}

func setPoint(cloud *Organized, header pcdHeader, index int, values []uint32) {
	x, y := index%int(header.width), index/int(header.width)
	cloud.Set(x, y, r3.Vector{
		X: float64(math.Float32frombits(values[0])),
		Y: float64(math.Float32frombits(values[1])),
		Z: float64(math.Float32frombits(values[2])),
	})
	if header.fields == pcdPointColor {
		cloud.SetColor(x, y, pcdIntToColor(values[3]))
	}
}
