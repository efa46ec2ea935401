package filestorage

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// ShrinkImage уменьшает JPEG и PNG, у которых ширина или высота больше maxSide, с сохранением пропорций.
// Остальные форматы и небольшие изображения возвращаются без изменений.
func ShrinkImage(data []byte, contentType string, maxSide uint) ([]byte, string, error) {
	if maxSide == 0 || (contentType != "image/jpeg" && contentType != "image/png") {
		return data, contentType, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if uint(cfg.Width) <= maxSide && uint(cfg.Height) <= maxSide {
		return data, contentType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	thmb := resize.Thumbnail(maxSide, maxSide, img, resize.Lanczos3)

	buf := new(bytes.Buffer)
	if contentType == "image/png" {
		err = png.Encode(buf, thmb)
	} else {
		err = jpeg.Encode(buf, thmb, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), contentType, nil
}
