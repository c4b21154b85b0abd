package commands

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// WAV format constants
const (
	wavHeaderSize      = 44
	wavRiffHeaderSize  = 36 // file size field excludes RIFF id and size itself
	wavPCMSubchunkSize = 16
	wavFileSizeOffset  = 4
	wavDataSizeOffset  = 40

	bytesPerSample16 = 2
	bitsPerByte      = 8

	pcm16Max = 32767
	pcm16Min = -32768

	wavWriterBufferSize = 256 * 1024
)

// readWAVMono decodes a WAV file into normalized float64 samples in
// [-1, 1], taking the first channel of multi-channel files, and returns
// the file's sample rate.
func readWAVMono(path string) ([]float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	format := buf.Format
	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := float64(int64(1) << (bitDepth - 1))

	channels := format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("invalid channel count %d in %s", channels, path)
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		samples[i] = float64(buf.Data[i*channels]) / scale
	}

	return samples, float64(format.SampleRate), nil
}

// writeWAVMono writes normalized float64 samples as a 16-bit mono PCM
// WAV file.
func writeWAVMono(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	w, err := newWAVWriter(f, sampleRate)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("write WAV header: %w", err)
	}

	if err := w.WriteFloat64(samples); err != nil {
		_ = f.Close()
		return fmt.Errorf("write samples: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize WAV: %w", err)
	}
	return f.Close()
}

// wavWriter writes 16-bit mono PCM without per-sample allocations. The
// RIFF and data sizes are patched in place on Close.
type wavWriter struct {
	w          *bufio.Writer
	f          *os.File
	sampleRate int
	dataSize   uint32
	byteBuf    []byte
}

func newWAVWriter(f *os.File, sampleRate int) (*wavWriter, error) {
	w := &wavWriter{
		w:          bufio.NewWriterSize(f, wavWriterBufferSize),
		f:          f,
		sampleRate: sampleRate,
		byteBuf:    make([]byte, wavWriterBufferSize),
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *wavWriter) writeHeader() error {
	byteRate := w.sampleRate * bytesPerSample16
	header := make([]byte, wavHeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // patched on Close
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], bytesPerSample16)
	binary.LittleEndian.PutUint16(header[34:36], bytesPerSample16*bitsPerByte)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	_, err := w.w.Write(header)
	return err
}

// WriteFloat64 converts normalized samples to 16-bit PCM and writes them.
func (w *wavWriter) WriteFloat64(samples []float64) error {
	needed := len(samples) * bytesPerSample16
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}

	buf := w.byteBuf[:needed]
	for i, s := range samples {
		v := int(s * pcm16Max)
		if v > pcm16Max {
			v = pcm16Max
		} else if v < pcm16Min {
			v = pcm16Min
		}
		binary.LittleEndian.PutUint16(buf[i*bytesPerSample16:], uint16(int16(v)))
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

// Close flushes buffered data and patches the header with final sizes.
func (w *wavWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}

	sizeBytes := make([]byte, 4)

	if _, err := w.f.Seek(wavFileSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, wavRiffHeaderSize+w.dataSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	if _, err := w.f.Seek(wavDataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, w.dataSize)
	if _, err := w.f.Write(sizeBytes); err != nil {
		return err
	}

	return nil
}
