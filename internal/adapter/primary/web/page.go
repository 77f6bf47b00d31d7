package web

import "net/http"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>maclock</title>
    <style>
        body { font-family: sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f0f0f0; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .alarm { background: #f8d7da; }
        button { background: #007bff; color: white; border: none; padding: 10px 20px; border-radius: 5px; cursor: pointer; }
        button:hover { background: #0056b3; }
    </style>
</head>
<body>
    <h1>maclock</h1>
    <div class="info" id="status">Loading...</div>
    <div>
        <button onclick="post('/api/lock')">Lock</button>
        <button onclick="post('/api/unlock')">Unlock</button>
        <button onclick="post('/api/audio/switch')">Switch output</button>
    </div>
    <script>
        function render(st) {
            const el = document.getElementById('status');
            let text = 'Power: ' + st.power + '<br>Locked: ' + st.locked + '<br>Alarm: ' + st.alarming;
            if (st.pendingRestore) {
                text += '<br>Audio restore pending';
            }
            if (st.lastError) {
                text += '<br>Error: ' + st.lastError;
            }
            el.innerHTML = text;
            el.className = st.alarming ? 'info alarm' : 'info';
        }

        async function post(path) {
            const res = await fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'}});
            if (!res.ok) {
                alert(await res.text());
            }
        }

        function connect() {
            const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/events');
            ws.onmessage = (ev) => render(JSON.parse(ev.data));
            ws.onclose = () => setTimeout(connect, 2000);
        }

        connect();
    </script>
</body>
</html>`))
}
