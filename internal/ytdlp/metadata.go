package ytdlp

// Extraction is the result of a successful yt-dlp run
type Extraction struct {
	// URL is the direct media URL
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Extractor string `json:"extractor,omitempty"`
	Ext       string `json:"ext,omitempty"`
}

// YtdlpOutput represents the JSON output from yt-dlp --dump-json
type YtdlpOutput struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Ext              string   `json:"ext"`
	WebpageURL       string   `json:"webpage_url"`
	Extractor        string   `json:"extractor"`
	ExtractorKey     string   `json:"extractor_key"`
	RequestedFormats []Format `json:"requested_formats"`
	Formats          []Format `json:"formats"`
}

// Format represents a media format option
type Format struct {
	FormatID   string `json:"format_id"`
	URL        string `json:"url"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Protocol   string `json:"protocol"`
}

// ToExtraction picks the media URL out of the yt-dlp output. The top-level
// url is set for single-file formats; merged formats only list their parts
// in requested_formats, and the first part (video) is used.
func (o *YtdlpOutput) ToExtraction() *Extraction {
	e := &Extraction{
		URL:       o.URL,
		Title:     o.Title,
		Extractor: o.ExtractorKey,
		Ext:       o.Ext,
	}
	if e.Extractor == "" {
		e.Extractor = o.Extractor
	}

	if e.URL == "" {
		for _, f := range o.RequestedFormats {
			if f.URL != "" {
				e.URL = f.URL
				e.Ext = f.Ext
				break
			}
		}
	}

	return e
}
