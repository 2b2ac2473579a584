package routes

// dashboardPage is the self-contained raw log browser. Theming and richer
// client-side behavior are out of scope; everything here talks to /api.
const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Redirector Dashboard</title>
<style>
body { font-family: monospace; margin: 1.5rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
th { background: #eee; }
form { margin-bottom: 1rem; }
input, select { margin-right: 0.5rem; }
#message { color: #a00; margin: 0.5rem 0; }
</style>
</head>
<body>
<h1>Redirector Dashboard</h1>
<form id="filters" onsubmit="loadLogs(1); return false;">
  <input name="campaign" placeholder="campaign">
  <input name="ip_filter" placeholder="ip contains">
  <input name="ua_filter" placeholder="user agent contains">
  <input name="method_filter" placeholder="method">
  <button type="submit">Filter</button>
  <a id="csv" href="/api/logs/export.csv">CSV</a>
  <a id="jsonl" href="/api/logs/export.jsonl">JSONL</a>
</form>
<div id="message"></div>
<table>
  <thead>
    <tr><th>ID</th><th>Timestamp</th><th>IP</th><th>Method</th><th>URL</th><th>User Agent</th><th>Campaign</th><th>ms</th></tr>
  </thead>
  <tbody id="rows"></tbody>
</table>
<p>
  <button onclick="loadLogs(page - 1)">Prev</button>
  <span id="pageinfo"></span>
  <button onclick="loadLogs(page + 1)">Next</button>
</p>
<script>
var page = 1;
function params(p) {
  var q = new URLSearchParams(new FormData(document.getElementById('filters')));
  q.set('page', p);
  return q;
}
function esc(s) {
  var d = document.createElement('div');
  d.textContent = s == null ? '' : s;
  return d.innerHTML;
}
function loadLogs(p) {
  if (p < 1) p = 1;
  fetch('/api/logs?' + params(p))
    .then(function (r) {
      if (!r.ok) throw new Error('query failed with status ' + r.status);
      return r.json();
    })
    .then(function (data) {
      page = data.page;
      document.getElementById('message').textContent = '';
      document.getElementById('pageinfo').textContent =
        'page ' + data.page + ' / ' + data.total_pages + ' (' + data.total_count + ' entries)';
      document.getElementById('rows').innerHTML = data.logs.map(function (l) {
        return '<tr><td>' + l.id + '</td><td>' + esc(l.timestamp) + '</td><td>' + esc(l.ip) +
          '</td><td>' + esc(l.method) + '</td><td>' + esc(l.url) + '</td><td>' + esc(l.user_agent) +
          '</td><td>' + esc(l.campaign) + '</td><td>' + l.response_time_ms + '</td></tr>';
      }).join('');
      var q = params(page);
      document.getElementById('csv').href = '/api/logs/export.csv?' + q;
      document.getElementById('jsonl').href = '/api/logs/export.jsonl?' + q;
    })
    .catch(function (err) {
      document.getElementById('rows').innerHTML = '';
      document.getElementById('message').textContent = 'Failed to load logs: ' + err.message;
    });
}
loadLogs(1);
</script>
</body>
</html>
`
