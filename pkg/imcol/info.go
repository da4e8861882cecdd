package imcol

// ChannelInfo summarises one declared channel.
type ChannelInfo struct {
	Name   string   `json:"name"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Planes int      `json:"planes"`
	Files  []string `json:"files"`
}

// Describe returns the size and plane count of every channel, in channel
// order. The first plane of each channel is decoded (and cached) to learn its
// size; a channel without planes reports zero width and height.
func Describe(img PlaneImage) ([]ChannelInfo, error) {
	state := img.State()
	infos := make([]ChannelInfo, 0, len(state))
	for _, cf := range state {
		n, err := img.PlaneCount(cf.Channel)
		if err != nil {
			return nil, err
		}

		info := ChannelInfo{Name: cf.Channel, Planes: n, Files: cf.Paths}
		if n > 0 {
			p, err := img.Plane(cf.Channel, PlaneAt(0))
			if err != nil {
				return nil, err
			}
			info.Width = p.Bounds().Dx()
			info.Height = p.Bounds().Dy()
		}
		infos = append(infos, info)
	}
	return infos, nil
}
