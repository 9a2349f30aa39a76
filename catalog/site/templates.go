package site

import "html/template"

// seasonIndexHTML renders the season landing page: the recording table plus
// the deterministic tag index the community browses by.
const seasonIndexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Season.Title}} — Modular Lockdown</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <h1>{{.Season.Title}}</h1>

  <p class="tags">Tags:
    {{- range .Tags}}
    <span class="tag">{{.}}</span>
    {{- end}}
  </p>

  <table class="recordings">
    <tr><th>Recording</th><th>Date</th><th>BPM</th><th>Tags</th><th>Mix</th></tr>
    {{- range .Season.Recordings}}
    <tr>
      <td><a href="{{.DataFolder}}/index.html">{{.Title}}</a></td>
      <td>{{.RecordedDate}}</td>
      <td>{{.BPMDisplay}}</td>
      <td>{{range .Tags}}<span class="tag">{{.}}</span> {{end}}</td>
      <td><a href="{{.DataFolder}}/{{.StereoMix.Vorbis}}">ogg</a> ({{.StereoMix.VorbisSize}})</td>
    </tr>
    {{- end}}
  </table>

  <p><a href="playlist.m3u">playlist.m3u</a> · <a href="ToS.txt">Terms of Service</a></p>
</body>
</html>
`

// recordingIndexHTML renders one recording's page with its stems.
const recordingIndexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Recording.Title}} — {{.Season.Title}}</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <p><a href="../index.html">&larr; {{.Season.Title}}</a></p>
  <h1>{{.Recording.Title}}</h1>

  <ul class="facts">
    <li>Recorded: {{.Recording.RecordedDate}}</li>
    <li>BPM: {{.Recording.BPMDisplay}}</li>
    {{- if .Recording.YouTubeURL}}
    <li><a href="{{.Recording.YouTubeURL}}">Watch the stream</a></li>
    {{- end}}
    <li>Tags: {{range .Recording.Tags}}<span class="tag">{{.}}</span> {{end}}</li>
    <li><a href="{{.Recording.Torrent}}">torrent</a></li>
  </ul>

  <h2>Stereo mix</h2>
  <p>
    <a href="{{.Recording.StereoMix.Flac}}">flac</a> ({{.Recording.StereoMix.FlacSize}}) ·
    <a href="{{.Recording.StereoMix.Vorbis}}">ogg</a> ({{.Recording.StereoMix.VorbisSize}})
    {{- with .Recording.StereoMix.Info}} · {{.Format}} {{.SamplingRate}} Hz / {{.BitDepth}} bit · {{.DurationDisplay}}{{- end}}
  </p>

  <h2>Tracks</h2>
  <table class="tracks">
    <tr><th>#</th><th>Name</th><th>Patch notes</th><th>FLAC</th><th>Ogg</th><th>Length</th></tr>
    {{- range .Recording.Tracks}}
    <tr>
      <td>{{.ID}}</td>
      <td>{{.DisplayName}}</td>
      <td class="notes">{{.PatchNotes}}</td>
      <td><a href="{{.Flac}}">flac</a> ({{.FlacSize}})</td>
      <td><a href="{{.Vorbis}}">ogg</a> ({{.VorbisSize}})</td>
      <td>{{with .Info}}{{.DurationDisplay}}{{end}}</td>
    </tr>
    {{- end}}
  </table>
</body>
</html>
`

var (
	seasonIndexTmpl    = template.Must(template.New("season_index").Parse(seasonIndexHTML))
	recordingIndexTmpl = template.Must(template.New("recording_index").Parse(recordingIndexHTML))
)
