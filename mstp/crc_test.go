package mstp

import "testing"

func TestHeaderCRCSelfVerifies(t *testing.T) {
	header := []byte{byte(FrameToken), 5, 3, 0, 0}
	crc := HeaderCRC(header)
	if !ValidHeaderCRC(append(append([]byte(nil), header...), crc)) {
		t.Fatalf("header CRC %#x did not self-verify", crc)
	}
}

func TestHeaderCRCRejectsCorruption(t *testing.T) {
	header := []byte{byte(FrameToken), 5, 3, 0, 0}
	crc := HeaderCRC(header)
	corrupt := append(append([]byte(nil), header...), crc)
	corrupt[1] ^= 0xFF
	if ValidHeaderCRC(corrupt) {
		t.Fatal("corrupted header passed CRC validation")
	}
}

func TestDataCRCSelfVerifies(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	crc := DataCRC(data)
	buf := append(append([]byte(nil), data...), byte(crc), byte(crc>>8))
	if !ValidDataCRC(buf) {
		t.Fatalf("data CRC %#x did not self-verify", crc)
	}
}

func TestDataCRCRejectsCorruption(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	crc := DataCRC(data)
	buf := append(append([]byte(nil), data...), byte(crc), byte(crc>>8))
	buf[2] ^= 0x01
	if ValidDataCRC(buf) {
		t.Fatal("corrupted data passed CRC validation")
	}
}
