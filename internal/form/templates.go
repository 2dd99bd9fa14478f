package form

import "html/template"

var templates = template.Must(template.New("form").Funcs(template.FuncMap{
	"placeholder": func() string { return SelectPlaceholder },
	"noneSelected": func(choices []Choice) bool {
		for _, c := range choices {
			if c.Selected {
				return false
			}
		}
		return true
	},
}).Parse(`
{{define "field"}}<div class="form-field field-{{.Field.Type}}" data-key="{{.Key}}">
{{- if eq .Control "checkbox"}}{{template "checkbox" .}}
{{- else}}<label for="{{.ID}}">{{.Field.Label}}{{if .Field.Required}} <span class="required">*</span>{{end}}</label>
{{- if eq .Control "textarea"}}{{template "textarea" .}}
{{- else if eq .Control "select"}}{{template "select" .}}
{{- else if eq .Control "radio"}}{{template "radio" .}}
{{- else if eq .Control "file"}}{{template "file" .}}
{{- else if eq .Control "color"}}{{template "color" .}}
{{- else}}{{template "input" .}}{{end}}
{{- end}}</div>{{end}}

{{define "input"}}<input type="{{.InputType}}" id="{{.ID}}" name="{{.Key}}" value="{{.Text}}"
{{- if .Placeholder}} placeholder="{{.Placeholder}}"{{end}}{{if .Field.Required}} required{{end}}>{{end}}

{{define "textarea"}}<textarea id="{{.ID}}" name="{{.Key}}" rows="{{.Rows}}"
{{- if .Placeholder}} placeholder="{{.Placeholder}}"{{end}}{{if .Field.Required}} required{{end}}>{{.Text}}</textarea>{{end}}

{{define "select"}}<select id="{{.ID}}" name="{{.Key}}"{{if .Field.Required}} required{{end}}>
<option value=""{{if noneSelected .Choices}} selected{{end}}>{{placeholder}}</option>
{{- range .Choices}}
<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select>{{end}}

{{define "radio"}}<fieldset id="{{.ID}}">
{{- $key := .Key}}{{$id := .ID}}
{{- range $i, $c := .Choices}}
<label><input type="radio" id="{{$id}}-{{$i}}" name="{{$key}}" value="{{$c.Value}}"{{if $c.Selected}} checked{{end}}> {{$c.Label}}</label>
{{- end}}
</fieldset>{{end}}

{{define "checkbox"}}<label for="{{.ID}}"><input type="checkbox" id="{{.ID}}" name="{{.Key}}" value="1"{{if .Checked}} checked{{end}}> {{.Field.Label}}</label>{{end}}

{{define "file"}}<input type="file" id="{{.ID}}" name="{{.Key}}" accept="{{.Accept}}">
{{- if .Text}}<span class="current-file">{{.Text}}</span>{{end}}
{{- if .Preview}}<img class="file-preview" src="{{.Preview}}" alt="">{{end}}{{end}}

{{define "color"}}<span class="color-pair">
<input type="color" id="{{.ID}}-swatch" value="{{if .Hex}}{{.Hex}}{{else}}#000000{{end}}" data-sync="{{.ID}}">
<input type="text" id="{{.ID}}" name="{{.Key}}" value="{{.Hex}}" pattern="#[0-9a-fA-F]{3,8}" data-sync="{{.ID}}-swatch">
</span>{{end}}
`))
