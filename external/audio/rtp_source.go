package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/pion/rtp"
)

const (
	maxRTPPacketBytes       = 1500
	maxOpusSamplesPerPacket = 5760
	defaultRTPBufferFrames  = 50
)

// packetDecoder turns one encoded payload into interleaved PCM and returns
// the number of samples per channel.
type packetDecoder interface {
	Decode(data []byte, pcm []int16) (int, error)
}

type decoderFactory func(sampleRate, channels int) (packetDecoder, error)

// RTPDevice receives Opus over RTP on a UDP address and exposes it as
// fixed-size PCM frames.
type RTPDevice struct {
	addr         string
	newDecoder   decoderFactory
	bufferFrames int
}

func NewRTPDevice(addr string) audio.Device {
	return &RTPDevice{addr: addr, newDecoder: newOpusDecoder, bufferFrames: defaultRTPBufferFrames}
}

func (d *RTPDevice) Open(format audio.Format) (audio.Reader, error) {
	dec, err := d.newDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: opus decoder at %d Hz: %w", audio.ErrDevice, format.SampleRate, err)
	}
	conn, err := net.ListenPacket("udp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", audio.ErrDevice, d.addr, err)
	}
	r := &rtpReader{
		conn:     conn,
		decoder:  dec,
		channels: format.Channels,
		maxBytes: d.bufferFrames * format.FrameBytes(),
	}
	r.cond = sync.NewCond(&r.mu)
	slog.Info("rtp audio listener started", "addr", conn.LocalAddr().String())
	go r.receive()
	return r, nil
}

type rtpReader struct {
	conn     net.PacketConn
	decoder  packetDecoder
	channels int
	maxBytes int

	mu          sync.Mutex
	cond        *sync.Cond
	pending     []byte
	overflowed  bool
	closed      bool
	receiveErr  error
	lastSeq     uint16
	seenPackets uint64
}

func (r *rtpReader) receive() {
	raw := make([]byte, maxRTPPacketBytes)
	pcm := make([]int16, maxOpusSamplesPerPacket*r.channels)
	for {
		n, _, err := r.conn.ReadFrom(raw)
		if err != nil {
			r.finish(err)
			return
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(raw[:n]); err != nil {
			slog.Warn("discarding malformed rtp packet", "error", err, "bytes", n)
			continue
		}
		samples, err := r.decoder.Decode(pkt.Payload, pcm)
		if err != nil {
			slog.Warn("discarding undecodable rtp payload", "error", err, "seq", pkt.SequenceNumber)
			continue
		}
		r.push(pkt.SequenceNumber, pcm[:samples*r.channels])
	}
}

func (r *rtpReader) push(seq uint16, pcm []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seenPackets > 0 && seq != r.lastSeq+1 {
		slog.Debug("rtp sequence gap", "expected", r.lastSeq+1, "got", seq)
	}
	r.lastSeq = seq
	r.seenPackets++
	for _, v := range pcm {
		r.pending = binary.LittleEndian.AppendUint16(r.pending, uint16(v))
	}
	if len(r.pending) > r.maxBytes {
		r.pending = r.pending[len(r.pending)-r.maxBytes:]
		r.overflowed = true
	}
	r.cond.Broadcast()
}

func (r *rtpReader) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed && !errors.Is(err, net.ErrClosed) {
		r.receiveErr = err
	}
	r.closed = true
	r.cond.Broadcast()
}

func (r *rtpReader) ReadFrame(buf []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.pending) < len(buf) && !r.closed {
		r.cond.Wait()
	}
	if r.overflowed {
		r.overflowed = false
		return audio.ErrOverflow
	}
	if len(r.pending) < len(buf) {
		if r.receiveErr != nil {
			return r.receiveErr
		}
		return io.EOF
	}
	copy(buf, r.pending[:len(buf)])
	r.pending = r.pending[len(buf):]
	return nil
}

func (r *rtpReader) Interrupt() {
	r.mu.Lock()
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *rtpReader) Close() error {
	r.Interrupt()
	return r.conn.Close()
}
