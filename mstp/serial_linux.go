//go:build linux

package mstp

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SerialPort is a ByteSource/Transmitter backed by a raw RS-485 serial
// device, configured 8N1 with no flow control. It is the concrete
// driver underneath a Port on real hardware; in tests a loopback pair
// or a hand-rolled fake stands in for it instead.
type SerialPort struct {
	fd int
}

// OpenSerialPort opens name (e.g. "/dev/ttyUSB0") at the given baud
// rate and puts it in raw 8N1 mode.
func OpenSerialPort(name string, baud uint32) (*SerialPort, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	speed, err := termiosSpeed(baud)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed = baud
	t.Ospeed = baud
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}
	return &SerialPort{fd: fd}, nil
}

// termiosSpeed maps a baud rate to its fixed Bxxxxx Cflag constant;
// MS/TP only ever runs at one of these standard rates.
func termiosSpeed(baud uint32) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	default:
		return 0, fmt.Errorf("unsupported baud rate %d", baud)
	}
}

// Close releases the underlying file descriptor.
func (s *SerialPort) Close() error { return unix.Close(s.fd) }

// WriteFrame implements Transmitter.
func (s *SerialPort) WriteFrame(data []byte) error {
	_, err := unix.Write(s.fd, data)
	return err
}

// ReadByte implements ByteSource using poll(2) to bound the wait.
func (s *SerialPort) ReadByte(timeout time.Duration) (byte, bool, error) {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return 0, false, nil
		}
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	var buf [1]byte
	nr, err := unix.Read(s.fd, buf[:])
	if err != nil || nr == 0 {
		return 0, false, err
	}
	return buf[0], true, nil
}
