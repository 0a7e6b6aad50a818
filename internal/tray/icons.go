package tray

// 16x16 status dots.

var greenIcon = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x37, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x05, 0xd0,
	0x3b, 0x53, 0xf8, 0x1f, 0x1b, 0xa6, 0x48, 0x33, 0x51, 0x86, 0x10, 0xd2,
	0x8c, 0xd7, 0x10, 0x62, 0x35, 0x63, 0x35, 0x84, 0x54, 0xcd, 0x18, 0x86,
	0x8c, 0x1a, 0x40, 0x05, 0x03, 0x28, 0x8e, 0x46, 0xaa, 0x24, 0x24, 0xaa,
	0x24, 0x65, 0xaa, 0x64, 0x26, 0x52, 0x01, 0x00, 0x82, 0x44, 0x78, 0xa8,
	0x4b, 0x3b, 0x37, 0xd3, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}

var yellowIcon = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x37, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x05, 0xf8,
	0x78, 0x84, 0xff, 0x3f, 0x36, 0x4c, 0x91, 0x66, 0xa2, 0x0c, 0x21, 0xa4,
	0x19, 0xaf, 0x21, 0xc4, 0x6a, 0xc6, 0x6a, 0x08, 0xa9, 0x9a, 0x31, 0x0c,
	0x19, 0x35, 0x80, 0x0a, 0x06, 0x50, 0x1c, 0x8d, 0x54, 0x49, 0x48, 0x54,
	0x49, 0xca, 0x54, 0xc9, 0x4c, 0xa4, 0x02, 0x00, 0x80, 0x4f, 0xae, 0xe4,
	0x04, 0xb6, 0xa4, 0x5e, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}

var redIcon = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x37, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x05, 0x78,
	0xee, 0x63, 0xf3, 0x1f, 0x1b, 0xa6, 0x48, 0x33, 0x51, 0x86, 0x10, 0xd2,
	0x8c, 0xd7, 0x10, 0x62, 0x35, 0x63, 0x35, 0x84, 0x54, 0xcd, 0x18, 0x86,
	0x8c, 0x1a, 0x40, 0x05, 0x03, 0x28, 0x8e, 0x46, 0xaa, 0x24, 0x24, 0xaa,
	0x24, 0x65, 0xaa, 0x64, 0x26, 0x52, 0x01, 0x00, 0x08, 0x5e, 0x7b, 0x18,
	0xd5, 0x85, 0x9e, 0x0b, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}

var greyIcon = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x37, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x05, 0x98,
	0xba, 0x74, 0xd9, 0x7f, 0x6c, 0x98, 0x22, 0xcd, 0x44, 0x19, 0x42, 0x48,
	0x33, 0x5e, 0x43, 0x88, 0xd5, 0x8c, 0xd5, 0x10, 0x52, 0x35, 0x63, 0x18,
	0x32, 0x6a, 0x00, 0x15, 0x0c, 0xa0, 0x38, 0x1a, 0xa9, 0x92, 0x90, 0xa8,
	0x92, 0x94, 0xa9, 0x92, 0x99, 0x48, 0x05, 0x00, 0x9f, 0x41, 0xbf, 0xf4,
	0x19, 0x28, 0xf2, 0xc8, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}
