package admin

// uiHTML is the embedded minimal UI served when --ui is set, grounded on
// the teacher's dashboardHTML constant in internal/dashboard/dashboard.go
// (a single zero-build-step HTML page, periodic fetch plus a WebSocket
// for live updates).
const uiHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>replayr</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         background: #0f1117; color: #e1e4e8; padding: 24px; }
  h1 { font-size: 22px; margin-bottom: 8px; }
  .subtitle { color: #8b949e; margin-bottom: 24px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th { text-align: left; color: #8b949e; padding: 6px 8px; border-bottom: 1px solid #30363d; }
  td { padding: 6px 8px; border-bottom: 1px solid #21262d; }
  .status-2 { color: #3fb950; }
  .status-4, .status-5 { color: #f85149; }
</style>
</head>
<body>
<h1>replayr</h1>
<p class="subtitle">Recorded interactions, newest first</p>
<table>
  <thead><tr><th>Time</th><th>Method</th><th>Path</th><th>Status</th><th>Model</th><th>Latency (ms)</th></tr></thead>
  <tbody id="rows"><tr><td colspan="6">Loading...</td></tr></tbody>
</table>

<script>
function esc(s) {
  if (s == null) return '';
  return String(s).replace(/&/g,'&amp;').replace(/</g,'&lt;').replace(/>/g,'&gt;');
}
function row(i) {
  const cls = 'status-' + String(i.response.status)[0];
  return '<tr><td>' + esc(i.recorded_at) + '</td><td>' + esc(i.request.method) +
    '</td><td>' + esc(i.request.path) + '</td><td class="' + cls + '">' + i.response.status +
    '</td><td>' + esc(i.metadata.model) + '</td><td>' + i.metadata.latency_ms + '</td></tr>';
}
async function refresh() {
  try {
    const res = await fetch('/api/v1/requests');
    const interactions = await res.json();
    const tbody = document.getElementById('rows');
    tbody.innerHTML = interactions.length
      ? interactions.map(row).join('')
      : '<tr><td colspan="6">No requests yet</td></tr>';
  } catch (e) { console.error('refresh failed:', e); }
}

function connectWS() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/api/v1/ws');
  ws.onmessage = function() { refresh(); };
  ws.onclose = function() { setTimeout(connectWS, 3000); };
  ws.onerror = function() { ws.close(); };
}

refresh();
setInterval(refresh, 5000);
connectWS();
</script>
</body>
</html>`
