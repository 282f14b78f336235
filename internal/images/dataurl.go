package images

import (
	"fmt"

	"github.com/vincent-petithory/dataurl"
)

// decodeDataURL splits a data: locator into its payload and media type
func decodeDataURL(locator string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(locator)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data URL: %w", err)
	}
	return du.Data, du.ContentType(), nil
}
