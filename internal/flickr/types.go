package flickr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Content models the three shapes the API uses interchangeably for
// title, description, and tags fields: a plain string, an object with a
// "_content" member, or a list of values. Unmarshaling never fails on an
// unexpected shape — the worst case flattens to an empty string.
type Content struct {
	value string
}

// UnmarshalJSON handles all three variant shapes exhaustively.
func (c *Content) UnmarshalJSON(data []byte) error {
	// Plain string.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.value = s
		return nil
	}

	// Object with a named content member.
	var obj struct {
		Content string `json:"_content"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		c.value = obj.Content
		return nil
	}

	// List of values, joined with ", ".
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, raw := range list {
			var elem Content
			if err := json.Unmarshal(raw, &elem); err == nil {
				parts = append(parts, elem.value)
				continue
			}

			parts = append(parts, strings.Trim(string(raw), `"`))
		}

		c.value = strings.Join(parts, ", ")

		return nil
	}

	// Numbers and booleans keep their literal form; anything else is empty.
	trimmed := strings.TrimSpace(string(data))
	if trimmed != "null" && trimmed != "" && trimmed[0] != '{' {
		c.value = strings.Trim(trimmed, `"`)
	}

	return nil
}

// Flatten returns the single flat string form of the value.
func (c Content) Flatten() string {
	return c.value
}

// MarshalJSON round-trips the flattened form.
func (c Content) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

// Intish accepts both JSON numbers and numeric strings — the API switches
// between the two depending on the method and extras requested.
type Intish int

// UnmarshalJSON parses either form; non-numeric input yields zero.
func (n *Intish) UnmarshalJSON(data []byte) error {
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = Intish(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*n = 0
		return nil //nolint:nilerr // unexpected shape flattens to zero
	}

	parsed, err := strconv.Atoi(s)
	if err != nil {
		*n = 0
		return nil //nolint:nilerr // non-numeric string flattens to zero
	}

	*n = Intish(parsed)

	return nil
}

// Int returns the plain int value.
func (n Intish) Int() int {
	return int(n)
}

// Album is one photoset entry from flickr.photosets.getList.
type Album struct {
	ID          string  `json:"id"`
	Title       Content `json:"title"`
	Description Content `json:"description"`
	Photos      Intish  `json:"photos"`
	DateCreate  string  `json:"date_create"`
	DateUpdate  string  `json:"date_update"`
}

// Photo is one photo entry from a photoset or photostream listing, with
// the extras fields merged in. GetPhotoInfo responses decode into the
// same struct and overwrite listing-level fields.
type Photo struct {
	ID           string  `json:"id"`
	Title        Content `json:"title"`
	Description  Content `json:"description"`
	Tags         Content `json:"tags"`
	DateTaken    string  `json:"datetaken"`
	DateUpload   string  `json:"dateupload"`
	Views        Intish  `json:"views"`
	URLThumbnail string  `json:"url_t"`
	URLOriginal  string  `json:"url_o"`
}

// Comment is one entry from flickr.photos.comments.getList.
type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"authorname"`
	Text       Content `json:"_content"`
	DateCreate string  `json:"datecreate"`
}

// envelope is the top-level REST response wrapper. Every response carries
// stat; failures add code and message.
type envelope struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// albumPage is the photosets.getList payload.
type albumPage struct {
	Photosets struct {
		Page     Intish  `json:"page"`
		Pages    Intish  `json:"pages"`
		Photoset []Album `json:"photoset"`
	} `json:"photosets"`
}

// albumPhotoPage is the photosets.getPhotos payload.
type albumPhotoPage struct {
	Photoset struct {
		Page  Intish  `json:"page"`
		Pages Intish  `json:"pages"`
		Photo []Photo `json:"photo"`
	} `json:"photoset"`
}

// streamPage is the people.getPhotos payload.
type streamPage struct {
	Photos struct {
		Page  Intish  `json:"page"`
		Pages Intish  `json:"pages"`
		Total Intish  `json:"total"`
		Photo []Photo `json:"photo"`
	} `json:"photos"`
}

// photoInfo is the photos.getInfo payload.
type photoInfo struct {
	Photo struct {
		ID          string  `json:"id"`
		Title       Content `json:"title"`
		Description Content `json:"description"`
		Views       Intish  `json:"views"`
		Tags        struct {
			Tag []struct {
				Raw string `json:"raw"`
			} `json:"tag"`
		} `json:"tags"`
		Dates struct {
			Taken  string `json:"taken"`
			Posted string `json:"posted"`
		} `json:"dates"`
	} `json:"photo"`
}

// commentList is the photos.comments.getList payload. The comments block
// is absent entirely for photos with no comments.
type commentList struct {
	Comments *struct {
		Comment []Comment `json:"comment"`
	} `json:"comments"`
}

// mergeInfo overlays detail-call fields onto a listing-level photo.
// Listing fields win only when the detail response left them empty.
func (p *Photo) mergeInfo(info *photoInfo) {
	if info.Photo.Title.Flatten() != "" {
		p.Title = info.Photo.Title
	}

	if info.Photo.Description.Flatten() != "" {
		p.Description = info.Photo.Description
	}

	if info.Photo.Views.Int() > 0 {
		p.Views = info.Photo.Views
	}

	if len(info.Photo.Tags.Tag) > 0 {
		raws := make([]string, 0, len(info.Photo.Tags.Tag))
		for _, t := range info.Photo.Tags.Tag {
			raws = append(raws, t.Raw)
		}

		p.Tags = Content{value: strings.Join(raws, ", ")}
	}

	if p.DateTaken == "" {
		p.DateTaken = info.Photo.Dates.Taken
	}

	if p.DateUpload == "" {
		p.DateUpload = info.Photo.Dates.Posted
	}
}

// String implements fmt.Stringer for log output.
func (p *Photo) String() string {
	return fmt.Sprintf("photo %s (%q)", p.ID, p.Title.Flatten())
}
