package sidefile

// shuffle regroups elemSize-byte elements so that byte k of every element
// is stored together: [all byte 0s][all byte 1s]... Processor ids share
// their high bytes, which then compress to long zero runs.
func shuffle(in []byte, elemSize int) []byte {
	n := len(in) / elemSize
	if elemSize <= 1 || n == 0 {
		return in
	}
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for j := 0; j < elemSize; j++ {
			out[j*n+i] = in[i*elemSize+j]
		}
	}
	return out
}

// unshuffle reverses shuffle.
func unshuffle(in []byte, elemSize int) []byte {
	n := len(in) / elemSize
	if elemSize <= 1 || n == 0 {
		return in
	}
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for j := 0; j < elemSize; j++ {
			out[i*elemSize+j] = in[j*n+i]
		}
	}
	return out
}

// fletcher32 computes the Fletcher-32 checksum over little endian 16-bit
// words. An odd trailing byte is padded with zero.
func fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	i := 0
	for ; i+1 < len(data); i += 2 {
		sum1 = (sum1 + (uint32(data[i]) | uint32(data[i+1])<<8)) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	if i < len(data) {
		sum1 = (sum1 + uint32(data[i])) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	return sum2<<16 | sum1
}
