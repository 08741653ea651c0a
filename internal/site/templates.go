package site

import "html/template"

const baseCSS = `
    :root {
      --bg: #0f0f0f;
      --card-bg: #1a1a1a;
      --card-border: #2a2a2a;
      --text: #e0e0e0;
      --text-muted: #888;
      --accent: #6366f1;
    }
    * { box-sizing: border-box; margin: 0; padding: 0; }
    body {
      font-family: 'Inter', 'Noto Sans SC', -apple-system, sans-serif;
      background: var(--bg);
      color: var(--text);
      line-height: 1.6;
      padding: 2rem;
      max-width: 900px;
      margin: 0 auto;
    }
    header {
      text-align: center;
      margin-bottom: 3rem;
      padding-bottom: 2rem;
      border-bottom: 1px solid var(--card-border);
    }
    h1 { font-size: 2.5rem; margin-bottom: 0.5rem; }
    .subtitle { color: var(--text-muted); font-size: 1.1rem; }
    .date { font-size: 1.2rem; color: var(--accent); margin: 1rem 0; }
    a { color: var(--accent); text-decoration: none; }
    .day-link {
      display: block;
      padding: 1rem;
      background: var(--card-bg);
      border: 1px solid var(--card-border);
      border-radius: 8px;
      margin-bottom: 0.5rem;
      color: var(--text);
    }
    .day-link:hover { border-color: var(--accent); }
    .day-count { color: var(--text-muted); font-size: 0.9rem; }
    .paper-card {
      background: var(--card-bg);
      border: 1px solid var(--card-border);
      border-radius: 12px;
      padding: 1.5rem;
      margin-bottom: 1.5rem;
    }
    .paper-card:hover { border-color: var(--accent); }
    .category-badge {
      background: var(--accent);
      color: white;
      padding: 0.25rem 0.75rem;
      border-radius: 20px;
      font-size: 0.8rem;
      font-weight: 500;
    }
    .paper-id {
      color: var(--text-muted);
      font-size: 0.85rem;
      font-family: monospace;
      margin-left: 0.5rem;
    }
    .paper-title { font-size: 1.15rem; line-height: 1.4; margin: 0.75rem 0 0.5rem; }
    .paper-title a { color: var(--text); }
    .paper-title a:hover { color: var(--accent); }
    .paper-title-zh { color: var(--text-muted); font-size: 1rem; margin-bottom: 0.5rem; }
    .paper-authors { color: var(--text-muted); font-size: 0.9rem; margin-bottom: 1rem; }
    .paper-summary {
      background: rgba(99, 102, 241, 0.1);
      border-radius: 8px;
      padding: 1rem;
      margin-bottom: 1rem;
    }
    .summary-section { margin-bottom: 0.5rem; }
    .summary-section:last-child { margin-bottom: 0; }
    .summary-section strong { color: var(--accent); }
    .summary-missing { color: var(--text-muted); font-size: 0.9rem; margin-bottom: 1rem; }
    .paper-abstract { margin-bottom: 1rem; }
    .paper-abstract summary { cursor: pointer; color: var(--text-muted); font-size: 0.9rem; }
    .paper-abstract p { margin-top: 0.75rem; font-size: 0.9rem; color: var(--text-muted); }
    .paper-links { display: flex; gap: 0.75rem; }
    .link-btn {
      padding: 0.5rem 1rem;
      background: var(--card-border);
      color: var(--text);
      border-radius: 6px;
      font-size: 0.85rem;
    }
    .link-btn:hover { background: var(--accent); }
    .back { margin-bottom: 2rem; }
    footer {
      text-align: center;
      padding-top: 2rem;
      margin-top: 2rem;
      border-top: 1px solid var(--card-border);
      color: var(--text-muted);
      font-size: 0.9rem;
    }
`

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>` + baseCSS + `</style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="subtitle">{{.Description}}</p>
  </header>
  <main>
{{- range .Days}}
    <a href="{{.Date}}.html" class="day-link">{{.Date}} <span class="day-count">{{.Count}} 篇论文</span></a>
{{- else}}
    <p>暂无归档。</p>
{{- end}}
  </main>
  <footer>
    <p>数据来源: <a href="https://arxiv.org">arXiv.org</a> | AI 总结: DeepSeek</p>
  </footer>
</body>
</html>
`))

var dayTemplate = template.Must(template.New("day").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Date}} - {{.Title}}</title>
  <style>` + baseCSS + `</style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="subtitle">{{.Description}}</p>
    <p class="date">{{.Date}} | 共 {{len .Papers}} 篇论文</p>
    <p class="back"><a href="index.html">← 返回归档</a></p>
  </header>
  <main>
{{- range .Papers}}
    <article class="paper-card">
      <div>
        <span class="category-badge">{{.CategoryName}}</span>
        <span class="paper-id">{{.ID}}</span>
      </div>
      <h3 class="paper-title"><a href="{{.URL}}" target="_blank">{{.Title}}</a></h3>
{{- with .Summary}}{{if .TitleZH}}
      <p class="paper-title-zh">{{.TitleZH}}</p>
{{- end}}{{end}}
      <p class="paper-authors">{{.AuthorLine}}</p>
{{- with .Summary}}
      <div class="paper-summary">
{{- if .Contribution}}
        <div class="summary-section"><strong>核心贡献:</strong> {{.Contribution}}</div>
{{- end}}
{{- if .Method}}
        <div class="summary-section"><strong>方法:</strong> {{.Method}}</div>
{{- end}}
{{- if .Finding}}
        <div class="summary-section"><strong>关键发现:</strong> {{.Finding}}</div>
{{- end}}
      </div>
{{- else}}
      <p class="summary-missing">摘要生成失败</p>
{{- end}}
      <details class="paper-abstract">
        <summary>查看原文摘要</summary>
        <p>{{.Abstract}}</p>
      </details>
      <div class="paper-links">
        <a href="{{.URL}}" target="_blank" class="link-btn">arXiv</a>
        <a href="{{.PDFURL}}" target="_blank" class="link-btn">PDF</a>
      </div>
    </article>
{{- end}}
  </main>
  <footer>
    <p>数据来源: <a href="https://arxiv.org">arXiv.org</a> | AI 总结: DeepSeek</p>
  </footer>
</body>
</html>
`))
