package domain

import "strings"

type CropType string

const (
	CropMaize      CropType = "MAIZE"
	CropRice       CropType = "RICE"
	CropCassava    CropType = "CASSAVA"
	CropYam        CropType = "YAM"
	CropSorghum    CropType = "SORGHUM"
	CropMillet     CropType = "MILLET"
	CropGroundnut  CropType = "GROUNDNUT"
	CropSoybean    CropType = "SOYBEAN"
	CropCowpea     CropType = "COWPEA"
	CropSesame     CropType = "SESAME"
	CropVegetables CropType = "VEGETABLES"
	CropFruits     CropType = "FRUITS"
	CropOther      CropType = "OTHER"
)

// CropTypes lists every accepted crop type.
var CropTypes = []CropType{
	CropMaize, CropRice, CropCassava, CropYam, CropSorghum, CropMillet, CropGroundnut,
	CropSoybean, CropCowpea, CropSesame, CropVegetables, CropFruits, CropOther,
}

func (c CropType) IsValid() bool {
	for _, v := range CropTypes {
		if v == c {
			return true
		}
	}
	return false
}

// ParseCropType accepts any letter case ("rice", "Rice").
func ParseCropType(s string) (CropType, bool) {
	c := CropType(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.IsValid()
}
