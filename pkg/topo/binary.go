package topo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"sort"
)

// sortedKeys returns the keys of m in sorted order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const (
	snapshotMagic   = "TOPOPREC"
	snapshotVersion = uint32(1)
	maxSnapNodes    = 10_000_000
	maxSnapEdges    = 50_000_000
	maxStringLen    = 1 << 16
	maxAttrCount    = 1 << 12
)

// snapshotHeader is the fixed-size binary header.
type snapshotHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

// Attribute value type tags.
const (
	tagString byte = iota
	tagInt
	tagFloat
	tagBool
)

// WriteSnapshot serializes a graph to a compact binary file for fast
// reload by the simulator. The file carries a CRC32 trailer and is
// written to a temp path then renamed, so readers never see a torn file.
func WriteSnapshot(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	bw := bufio.NewWriter(f)
	crcWriter := &crc32Writer{w: bw, hash: crc32.NewIEEE()}
	w := crcWriter

	hdr := snapshotHeader{
		Version:  snapshotVersion,
		NumNodes: uint32(g.NumNodes()),
		NumEdges: uint32(g.NumEdges()),
	}
	copy(hdr.Magic[:], snapshotMagic)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Nodes in sorted ID order so the byte stream is reproducible.
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if err := writeString(w, n.ID); err != nil {
			return fmt.Errorf("write node %s: %w", n.ID, err)
		}
		if err := writeString(w, string(n.Kind)); err != nil {
			return fmt.Errorf("write node %s kind: %w", n.ID, err)
		}
		if err := writeAttrs(w, n.Attrs); err != nil {
			return fmt.Errorf("write node %s attrs: %w", n.ID, err)
		}
	}

	// Edges sorted by endpoints, same reasoning as the node ordering.
	edges := make([]*Edge, len(g.Edges()))
	copy(edges, g.Edges())
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	for _, e := range edges {
		if err := writeString(w, e.From); err != nil {
			return fmt.Errorf("write edge from: %w", err)
		}
		if err := writeString(w, e.To); err != nil {
			return fmt.Errorf("write edge to: %w", err)
		}
		vals := [3]float64{e.Weight, e.Latency, e.Jitter}
		if err := binary.Write(w, binary.LittleEndian, &vals); err != nil {
			return fmt.Errorf("write edge %s--%s costs: %w", e.From, e.To, err)
		}
		if err := writeAttrs(w, e.Attrs); err != nil {
			return fmt.Errorf("write edge %s--%s attrs: %w", e.From, e.To, err)
		}
	}

	// CRC32 trailer over everything written so far.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(bw, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadSnapshot deserializes a graph written by WriteSnapshot.
func ReadSnapshot(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	crcReader := &crc32Reader{r: br, hash: crc32.NewIEEE()}
	r := crcReader

	var hdr snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != snapshotMagic {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxSnapNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxSnapNodes)
	}
	if hdr.NumEdges > maxSnapEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxSnapEdges)
	}

	g := NewGraph()

	for i := uint32(0); i < hdr.NumNodes; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read node %d id: %w", i, err)
		}
		kind, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read node %s kind: %w", id, err)
		}
		attrs, err := readAttrs(r)
		if err != nil {
			return nil, fmt.Errorf("read node %s attrs: %w", id, err)
		}
		g.AddNode(&Node{ID: id, Kind: ParseKind(kind), Attrs: attrs})
	}

	for i := uint32(0); i < hdr.NumEdges; i++ {
		from, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read edge %d from: %w", i, err)
		}
		to, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read edge %d to: %w", i, err)
		}
		var vals [3]float64
		if err := binary.Read(r, binary.LittleEndian, &vals); err != nil {
			return nil, fmt.Errorf("read edge %s--%s costs: %w", from, to, err)
		}
		attrs, err := readAttrs(r)
		if err != nil {
			return nil, fmt.Errorf("read edge %s--%s attrs: %w", from, to, err)
		}
		e := &Edge{From: from, To: to, Weight: vals[0], Latency: vals[1], Jitter: vals[2], Attrs: attrs}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	// Validate CRC32 trailer. The trailer itself is read from the
	// underlying buffered reader so it does not feed the hash.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(br, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	g.Normalize()
	return g, nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("string length %d exceeds limit %d", len(s), maxStringLen)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeAttrs encodes an attribute map as a count followed by sorted
// key/tag/value records. Sorting keeps the encoding reproducible.
func writeAttrs(w io.Writer, attrs map[string]any) error {
	if len(attrs) > maxAttrCount {
		return fmt.Errorf("attribute count %d exceeds limit %d", len(attrs), maxAttrCount)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(attrs))); err != nil {
		return err
	}
	for _, k := range sortedKeys(attrs) {
		if err := writeString(w, k); err != nil {
			return err
		}
		switch v := attrs[k].(type) {
		case string:
			if _, err := w.Write([]byte{tagString}); err != nil {
				return err
			}
			if err := writeString(w, v); err != nil {
				return err
			}
		case int64:
			if _, err := w.Write([]byte{tagInt}); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		case float64:
			if _, err := w.Write([]byte{tagFloat}); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, math.Float64bits(v)); err != nil {
				return err
			}
		case bool:
			b := byte(0)
			if v {
				b = 1
			}
			if _, err := w.Write([]byte{tagBool, b}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("attribute %q: unsupported type %T", k, v)
		}
	}
	return nil
}

func readAttrs(r io.Reader) (map[string]any, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	attrs := make(map[string]any, n)
	var tag [1]byte
	for i := 0; i < int(n); i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			return nil, err
		}
		switch tag[0] {
		case tagString:
			s, err := readString(r)
			if err != nil {
				return nil, err
			}
			attrs[k] = s
		case tagInt:
			var v int64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			attrs[k] = v
		case tagFloat:
			var bits uint64
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, err
			}
			attrs[k] = math.Float64frombits(bits)
		case tagBool:
			var b [1]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, err
			}
			attrs[k] = b[0] != 0
		default:
			return nil, fmt.Errorf("attribute %q: unknown type tag %d", k, tag[0])
		}
	}
	return attrs, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
